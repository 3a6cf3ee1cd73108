package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"sentiment_dashboard/internal/report"
)

type upload struct {
	filename string
	format   report.Format
	data     []byte
}

// readUpload reads the request body, either a multipart form with a "file"
// part or the raw report, within the configured size cap. It writes the error
// response itself and reports whether the caller should continue.
func (r *Router) readUpload(c *gin.Context) (upload, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, r.MaxUploadBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", r.MaxUploadBytes)})
			return upload{}, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read upload"})
		return upload{}, false
	}

	up := upload{data: body}
	declared := []string{c.Query("format")}
	mediaType, params, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		part, err := filePart(body, params["boundary"])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return upload{}, false
		}
		up.filename = part.filename
		up.data = part.data
		declared = append(declared, part.filename, part.contentType)
	} else {
		up.filename = c.Query("filename")
		declared = append(declared, up.filename, c.GetHeader("Content-Type"))
	}

	for _, d := range declared {
		if strings.TrimSpace(d) == "" {
			continue
		}
		if f, err := report.ParseFormat(d); err == nil {
			up.format = f
			return up, true
		}
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "could not determine report format; pass format=json or format=csv"})
	return upload{}, false
}

type formFile struct {
	filename    string
	contentType string
	data        []byte
}

func filePart(body []byte, boundary string) (formFile, error) {
	if boundary == "" {
		return formFile{}, errors.New("multipart upload without boundary")
	}
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return formFile{}, errors.New(`multipart upload has no "file" part`)
		}
		if err != nil {
			return formFile{}, fmt.Errorf("read multipart upload: %w", err)
		}
		if part.FormName() != "file" {
			continue
		}
		data, err := io.ReadAll(part)
		if err != nil {
			return formFile{}, fmt.Errorf("read multipart upload: %w", err)
		}
		return formFile{filename: part.FileName(), contentType: part.Header.Get("Content-Type"), data: data}, nil
	}
}

// rowsJSON renders table rows as objects whose keys follow column order.
// The score column is written as a number when it parses as one.
type rowsJSON report.Table

func (t rowsJSON) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	keys := make([][]byte, len(t.Columns))
	for i, col := range t.Columns {
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		keys[i] = k
	}
	for i, row := range t.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, col := range t.Columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			buf.Write(keys[j])
			buf.WriteByte(':')
			v := row.Get(col)
			switch {
			case !v.Valid:
				buf.WriteString("null")
			case col == report.ColumnScore:
				if f, ok := v.Float(); ok {
					n, err := json.Marshal(f)
					if err != nil {
						return nil, err
					}
					buf.Write(n)
					break
				}
				fallthrough
			default:
				s, err := json.Marshal(v.Text)
				if err != nil {
					return nil, err
				}
				buf.Write(s)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
