package api

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// GzipRequestMiddleware transparently inflates request bodies sent with
// Content-Encoding: gzip. A body that is not valid gzip is rejected with 400.
func GzipRequestMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isGzipEncoded(req.Header.Values(echo.HeaderContentEncoding)) {
				return next(c)
			}
			zr, err := gzip.NewReader(req.Body)
			if err != nil {
				_ = req.Body.Close()
				return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
			}
			req.Body = inflatedBody{Reader: zr, zr: zr, raw: req.Body}
			req.ContentLength = -1
			req.Header.Del(echo.HeaderContentEncoding)
			req.Header.Del(echo.HeaderContentLength)
			return next(c)
		}
	}
}

func isGzipEncoded(values []string) bool {
	for _, v := range values {
		for _, enc := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(enc), "gzip") {
				return true
			}
		}
	}
	return false
}

type inflatedBody struct {
	io.Reader
	zr  *gzip.Reader
	raw io.Closer
}

func (b inflatedBody) Close() error {
	zerr := b.zr.Close()
	if err := b.raw.Close(); err != nil {
		return err
	}
	return zerr
}
