// Package baseline holds the shared model of the analyzer: page facts, crawl
// results, category scores, feature verdicts, audit reports and the analysis
// aggregate, together with the collaborator interfaces and score banding
// helpers used across the pipeline.
package baseline
