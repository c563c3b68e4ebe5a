// Package params turns repeated command-line values and dotenv files into
// settings for an ingest run.
//
// Column aliases map a source header to a canonical column for one entity:
//
//	crmingest ingest --month 7 --alias "estimates:Sales tax=tax"
//
// Aliases given on the command line are merged over the aliases section of
// crmingest.yaml.
//
// Environment files are loaded with godotenv before configuration is
// resolved. Variables already present in the process environment win.
package params
