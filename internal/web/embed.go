// Package web embeds the browser dashboard and the bundled sample CSV so the
// backend can be tried without a separate frontend build.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// SampleCSV is the name of the bundled sample upload.
const SampleCSV = "sample_equipment_data.csv"

//go:embed dist
var staticFiles embed.FS

// FileSystem returns the embedded files with dist as root.
func FileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "dist")
}

// RegisterStaticRoutes serves the dashboard for every GET that is not an API
// path. Register the API routes first.
func RegisterStaticRoutes(e *echo.Echo, apiPrefix string) error {
	staticFS, err := FileSystem()
	if err != nil {
		return err
	}
	fileServer := http.FileServer(http.FS(staticFS))

	e.GET("/*", func(c echo.Context) error {
		requestPath := path.Clean("/" + c.Request().URL.Path)
		if requestPath == apiPrefix || strings.HasPrefix(requestPath, apiPrefix+"/") {
			return echo.ErrNotFound
		}

		name := strings.TrimPrefix(requestPath, "/")
		if name == "" || name == "index.html" {
			return serveIndex(c, staticFS)
		}
		info, err := fs.Stat(staticFS, name)
		if err != nil || info.IsDir() {
			// unknown paths belong to the dashboard
			return serveIndex(c, staticFS)
		}
		fileServer.ServeHTTP(c.Response(), c.Request())
		return nil
	})
	return nil
}

func serveIndex(c echo.Context, staticFS fs.FS) error {
	content, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "dashboard not embedded")
	}
	return c.HTMLBlob(http.StatusOK, content)
}

// SampleData returns the bundled sample CSV.
func SampleData() ([]byte, error) {
	return fs.ReadFile(staticFiles, path.Join("dist", SampleCSV))
}
