// Package docs embeds the gateway's OpenAPI document.
package docs

import _ "embed"

//go:embed openapi.yaml
var OpenAPI []byte
