package swagger

import _ "embed"

// OpenAPI is the embedded OpenAPI document describing the API routes.
//
//go:embed openapi.yaml
var OpenAPI []byte
