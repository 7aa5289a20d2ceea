package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dekarrin/cfgparse/server/token"
	"github.com/dekarrin/cfgparse/store"
	"github.com/dekarrin/cfgparse/store/inmem"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("test-secret-test-secret-test-secret!!")

func newTestServer() *Server {
	return New(inmem.NewDatastore(), testSecret, 0)
}

// issueTestKeyAndToken creates an API key directly in srv's store and
// returns a bearer token for it, bypassing the bcrypt/random-secret dance
// cmd/cfgserver's --issue-key flow does for a real deployment.
func issueTestKeyAndToken(t *testing.T, srv *Server) string {
	key, err := srv.db.APIKeys().Create(context.Background(), store.APIKey{Name: "test-key", HashedSecret: "irrelevant-for-tests"})
	if err != nil {
		t.Fatal(err)
	}
	tok, err := token.Generate(testSecret, key)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return bytes.NewReader(data)
}

var abGrammar = map[string]interface{}{
	"name":  "ab",
	"start": "S",
	"productions": []map[string]interface{}{
		{"pattern": "S", "rhs": []map[string]interface{}{
			{"terminal": map[string]interface{}{"kind": "literal", "literal": "a"}},
			{"nonterminal": "S"},
		}},
		{"pattern": "S", "rhs": []map[string]interface{}{
			{"terminal": map[string]interface{}{"kind": "literal", "literal": "b"}},
		}},
	},
}

func doRequest(srv *Server, method, path string, body *bytes.Reader, bearer string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func Test_createGrammar_requiresAuth(t *testing.T) {
	srv := newTestServer()
	w := doRequest(srv, http.MethodPost, "/api/v1/grammars/", jsonBody(t, abGrammar), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func Test_createAndParseGrammar(t *testing.T) {
	srv := newTestServer()
	tok := issueTestKeyAndToken(t, srv)

	w := doRequest(srv, http.MethodPost, "/api/v1/grammars/", jsonBody(t, abGrammar), tok)
	assert.Equal(t, http.StatusCreated, w.Code)

	var created GrammarSummary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "ab", created.Name)

	parseW := doRequest(srv, http.MethodPost, "/api/v1/grammars/"+created.ID.String()+"/parse?engine=earley",
		jsonBody(t, map[string]string{"input": "aaab"}), "")
	assert.Equal(t, http.StatusOK, parseW.Code)

	var resp ParseResponse
	assert.NoError(t, json.Unmarshal(parseW.Body.Bytes(), &resp))
	assert.True(t, resp.Recognized)
	assert.NotNil(t, resp.Tree)

	getW := doRequest(srv, http.MethodGet, "/api/v1/grammars/"+created.ID.String(), nil, "")
	assert.Equal(t, http.StatusOK, getW.Code)

	delW := doRequest(srv, http.MethodDelete, "/api/v1/grammars/"+created.ID.String(), nil, tok)
	assert.Equal(t, http.StatusNoContent, delW.Code)

	goneW := doRequest(srv, http.MethodGet, "/api/v1/grammars/"+created.ID.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, goneW.Code)
}

func Test_parseGrammar_cykEngineUsesNormalizedForm(t *testing.T) {
	srv := newTestServer()
	tok := issueTestKeyAndToken(t, srv)

	w := doRequest(srv, http.MethodPost, "/api/v1/grammars/", jsonBody(t, abGrammar), tok)
	var created GrammarSummary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	parseW := doRequest(srv, http.MethodPost, "/api/v1/grammars/"+created.ID.String()+"/parse?engine=cyk",
		jsonBody(t, map[string]string{"input": "ab"}), "")
	assert.Equal(t, http.StatusOK, parseW.Code)

	var resp ParseResponse
	assert.NoError(t, json.Unmarshal(parseW.Body.Bytes(), &resp))
	assert.True(t, resp.Recognized)
}

func Test_parseGrammar_rejectsInput(t *testing.T) {
	srv := newTestServer()
	tok := issueTestKeyAndToken(t, srv)

	w := doRequest(srv, http.MethodPost, "/api/v1/grammars/", jsonBody(t, abGrammar), tok)
	var created GrammarSummary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	parseW := doRequest(srv, http.MethodPost, "/api/v1/grammars/"+created.ID.String()+"/parse",
		jsonBody(t, map[string]string{"input": "c"}), "")
	assert.Equal(t, http.StatusOK, parseW.Code)

	var resp ParseResponse
	assert.NoError(t, json.Unmarshal(parseW.Body.Bytes(), &resp))
	assert.False(t, resp.Recognized)
	assert.NotNil(t, resp.Error)
}

func Test_getGrammar_notFound(t *testing.T) {
	srv := newTestServer()
	w := doRequest(srv, http.MethodGet, "/api/v1/grammars/00000000-0000-0000-0000-000000000000", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func Test_listGrammars(t *testing.T) {
	srv := newTestServer()
	tok := issueTestKeyAndToken(t, srv)
	doRequest(srv, http.MethodPost, "/api/v1/grammars/", jsonBody(t, abGrammar), tok)

	w := doRequest(srv, http.MethodGet, "/api/v1/grammars/", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	var list []GrammarSummary
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}
