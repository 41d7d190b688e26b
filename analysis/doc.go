// Package analysis implements the company analysis loop: the model researches
// a company with the available tools and submits a structured report,
// the loop ends when the report is complete or the termination policy stops it.
package analysis
