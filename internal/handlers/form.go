package handlers

import (
	"mime/multipart"
	"net/http"
)

// formParts returns the uploads under fieldName and the first value of every
// text field. A request without a multipart form yields neither.
func formParts(r *http.Request, fieldName string) ([]*multipart.FileHeader, map[string]string) {
	fields := make(map[string]string)
	mForm := r.MultipartForm
	if mForm == nil {
		return nil, fields
	}
	for k, vs := range mForm.Value {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return mForm.File[fieldName], fields
}
