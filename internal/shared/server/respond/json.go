package respond

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload interface{}) {
	JSON(c, http.StatusOK, payload)
}

// Attachment streams r as a downloadable file. Headers are only committed once the
// first bytes are read, so a failing reader still yields a JSON error.
func Attachment(c *gin.Context, contentType, fileName string, r io.Reader) error {
	var first [512]byte
	n, err := io.ReadAtLeast(r, first[:], 1)
	if err != nil && err != io.EOF {
		return err
	}
	c.Header("Content-Type", contentType)
	if fileName != "" {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	}
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write(first[:n])
	_, _ = io.Copy(c.Writer, r)
	return nil
}
