package middleware

import "net/http"

// multipartOverhead allows for boundaries and part headers around the file.
const multipartOverhead = 1 << 20

// MaxBodySize limits the request body to the given number of bytes.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				w.Write([]byte(`{"error":"request body too large"}`))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// MaxUploadSize limits a multipart upload whose file may be up to fileBytes.
func MaxUploadSize(fileBytes int64) func(http.Handler) http.Handler {
	return MaxBodySize(fileBytes + multipartOverhead)
}
