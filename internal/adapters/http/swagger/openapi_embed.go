package swagger

import _ "embed"

// OpenAPI is the API reference served at /openapi.yaml.
//
//go:embed openapi.yaml
var OpenAPI []byte
