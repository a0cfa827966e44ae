// Package config holds the featline configuration.
//
// # Key Features
//
// - Config: one structure for hashing, feature options, parsing, performance and observability
// - Environment variable substitution with ${VAR_NAME} syntax
// - Defaults from NewConfig and range checks in Validate
//
// # Usage
//
//	cfg, err := config.LoadFile("featline.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// ## Environment Variable Substitution
//
//	# featline.yaml
//	name: train
//	features:
//	  dictionaries:
//	    - namespaces: "w"
//	      path: ${DICT_BUCKET}/words.dict.gz
//
// The command line layers flags and FEATLINE_* environment variables on top
// of the file through viper; this package only knows about YAML.
package config
