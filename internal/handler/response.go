package handler

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/authcode/authcode-go/internal/model"
)

const maxBodyBytes = 1 << 20 // 1MB

// payload is a flat request body, read from a JSON object or form values.
type payload map[string]string

func (p payload) get(key string) string { return p[key] }

// readPayload decodes the request body. On failure it writes the error
// response and returns false.
func readPayload(w http.ResponseWriter, r *http.Request) (payload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			writeBodyError(w, err)
			return nil, false
		}
		p := make(payload, len(raw))
		for k, v := range raw {
			switch val := v.(type) {
			case string:
				p[k] = val
			case float64:
				p[k] = strconv.FormatFloat(val, 'f', -1, 64)
			}
		}
		return p, true
	}

	if err := r.ParseForm(); err != nil {
		writeBodyError(w, err)
		return nil, false
	}
	p := make(payload, len(r.PostForm))
	for k := range r.PostForm {
		p[k] = r.PostForm.Get(k)
	}
	return p, true
}

func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorResponse(msg string) model.Envelope {
	return model.Envelope{OK: false, Error: msg}
}

// HandleHealth handles GET /health requests.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Envelope{OK: true})
}
