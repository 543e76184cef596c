package docs

import (
	"embed"
	"net/http"
)

//go:embed index.html openapi.yaml
var assets embed.FS

// Handler serves the API description and a Swagger UI page. Mount it with
// http.StripPrefix.
func Handler() http.Handler {
	return http.FileServerFS(assets)
}
