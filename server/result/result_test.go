package result

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_OK_writesStatusAndBody(t *testing.T) {
	r := OK(map[string]string{"hello": "world"})
	w := httptest.NewRecorder()
	r.WriteResponse(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "world", body["hello"])
}

func Test_NoContent_writesEmptyBody(t *testing.T) {
	r := NoContent()
	w := httptest.NewRecorder()
	r.WriteResponse(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func Test_Err_writesErrorEnvelope(t *testing.T) {
	r := BadRequest("bad input", "validation failed: %s", "missing field")
	w := httptest.NewRecorder()
	r.WriteResponse(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed: missing field", r.InternalMsg)

	var body ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bad input", body.Error)
	assert.Equal(t, http.StatusBadRequest, body.Status)
}

func Test_Unauthorized_setsWWWAuthenticateHeader(t *testing.T) {
	r := Unauthorized("")
	w := httptest.NewRecorder()
	r.WriteResponse(w)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
}

func Test_TextErr_writesPlainText(t *testing.T) {
	r := TextErr(http.StatusInternalServerError, "oops", "panic: boom")
	w := httptest.NewRecorder()
	r.WriteResponse(w)

	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "oops", w.Body.String())
}

func Test_WriteResponse_panicsOnUnpopulatedResult(t *testing.T) {
	var r Result
	w := httptest.NewRecorder()
	assert.Panics(t, func() { r.WriteResponse(w) })
}
