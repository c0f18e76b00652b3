// Gobexport exports registry datasets to flat files.
//
// A catalogue declares the sources (REST, paged GraphQL or streaming
// GraphQL queries) and the products derived from them: the columns of
// each file, its filters, history expansion and sink.
//
// Usage:
//
//	# Export every product in the catalogue
//	gobexport run
//
//	# Export selected products with a custom configuration file
//	gobexport run meetbouten_csv metingen_csv --config /etc/gobexport/config.yml
//
//	# List the products of a catalogue
//	gobexport list --catalogue catalogue.yml
//
//	# Check configuration, catalogue and formats without contacting the API
//	gobexport validate
package main

func main() {
	Execute()
}
