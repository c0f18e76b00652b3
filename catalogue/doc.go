// Package catalogue loads the declarative list of export products.
//
// A catalogue is a YAML file with two ordered mappings. Sources describe
// remote queries; products bind a source to a format, filters, history
// expansion, sorters and an output file:
//
//	sources:
//	  meetbouten:
//	    type: graphql
//	    query: |
//	      { meetboutenMeetbouten { edges { node { identificatie } } } }
//	    batch_size: 500
//	    secure: true
//	products:
//	  meetbouten_csv:
//	    source: meetbouten
//	    format: formats/meetbouten.yml
//	    filters:
//	      - type: unique
//	        field: identificatie
//	    output: meetbouten/CSV/MBT_MEETBOUT.csv
//
// A format is either inline or the path of a format file relative to the
// catalogue. Build turns the catalogue into export products.
package catalogue
