package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dekarrin/cfgparse/cfgerr"
	"github.com/dekarrin/cfgparse/cnf"
	"github.com/dekarrin/cfgparse/cyk"
	"github.com/dekarrin/cfgparse/earley"
	"github.com/dekarrin/cfgparse/grammarjson"
	"github.com/dekarrin/cfgparse/server/result"
	"github.com/dekarrin/cfgparse/store"
	"github.com/dekarrin/cfgparse/tree"
)

// parseJSON decodes req's body into v, requiring an application/json
// Content-Type, matching server/api/api.go's parseJSON.
func parseJSON(req *http.Request, v interface{}) error {
	contentType := req.Header.Get("Content-Type")
	if !strings.EqualFold(contentType, "application/json") {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	if err := json.Unmarshal(bodyData, v); err != nil {
		return fmt.Errorf("malformed JSON in request: %w", err)
	}
	return nil
}

// createGrammar handles POST /api/v1/grammars: parses the submitted grammar,
// normalizes it to CNF up front so every later parse request reuses the
// cached form instead of re-normalizing on every call, and persists both
// forms.
func (srv *Server) createGrammar(req *http.Request) result.Result {
	var body grammarjson.Grammar
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), "decode request: %s", err.Error())
	}

	g, err := body.ToGrammar()
	if err != nil {
		return result.BadRequest(err.Error(), "build grammar: %s", err.Error())
	}
	if err := g.Validate(); err != nil {
		return result.BadRequest(err.Error(), "validate grammar: %s", err.Error())
	}

	normalized := cnf.Normalize(g)

	rec, err := srv.db.Grammars().Create(req.Context(), store.GrammarRecord{
		Name:       body.Name,
		Source:     g,
		Normalized: normalized,
	})
	if err != nil {
		return result.InternalServerError("create grammar: %s", err.Error())
	}

	return result.Created(newGrammarSummary(rec.ID, rec.Name, rec.Source), "created grammar %s", rec.ID)
}

// listGrammars handles GET /api/v1/grammars.
func (srv *Server) listGrammars(req *http.Request) result.Result {
	recs, err := srv.db.Grammars().GetAll(req.Context())
	if err != nil {
		return result.InternalServerError("list grammars: %s", err.Error())
	}

	summaries := make([]GrammarSummary, len(recs))
	for i, rec := range recs {
		summaries[i] = newGrammarSummary(rec.ID, rec.Name, rec.Source)
	}
	return result.OK(summaries, "listed %d grammar(s)", len(summaries))
}

// getGrammar handles GET /api/v1/grammars/{id}.
func (srv *Server) getGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)

	rec, err := srv.db.Grammars().GetByID(req.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			return result.NotFound("grammar %s not found", id)
		}
		return result.InternalServerError("get grammar: %s", err.Error())
	}

	return result.OK(newGrammarSummary(rec.ID, rec.Name, rec.Source), "fetched grammar %s", id)
}

// deleteGrammar handles DELETE /api/v1/grammars/{id}.
func (srv *Server) deleteGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)

	_, err := srv.db.Grammars().Delete(req.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			return result.NotFound("grammar %s not found", id)
		}
		return result.InternalServerError("delete grammar: %s", err.Error())
	}

	return result.NoContent("deleted grammar %s", id)
}

// ParseRequest is the JSON body of a POST /api/v1/grammars/{id}/parse
// request.
type ParseRequest struct {
	Input string `json:"input"`
}

// ParseResponse is the JSON body returned from a successful parse request:
// exactly one of Tree or Trees is set, depending on whether "all" was
// requested, unless Recognized is false, in which case neither is set and
// Error carries the cfgerr.SyntaxError rendering.
type ParseResponse struct {
	Recognized bool              `json:"recognized"`
	Tree       *tree.Tree        `json:"tree,omitempty"`
	Trees      []*tree.Tree      `json:"trees,omitempty"`
	Error      *SyntaxErrorJSON  `json:"error,omitempty"`
}

// SyntaxErrorJSON is the JSON rendering of a cfgerr.SyntaxError.
type SyntaxErrorJSON struct {
	Reason     string   `json:"reason"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Message    string   `json:"message"`
	Expected   []string `json:"expected,omitempty"`
	FullReport string   `json:"full_report"`
}

func newSyntaxErrorJSON(se cfgerr.SyntaxError) *SyntaxErrorJSON {
	start, end := se.Range()
	var expected []string
	for _, nt := range se.Context() {
		expected = append(expected, string(nt))
	}
	return &SyntaxErrorJSON{
		Reason:     string(se.Reason()),
		Start:      start,
		End:        end,
		Message:    se.Error(),
		Expected:   expected,
		FullReport: se.FullMessage(),
	}
}

// engine is the interface common to *earley.Parser and *cyk.Parser, exactly
// the methods parseGrammar needs.
type engine interface {
	Recognizes(input string) bool
	SyntaxTree(input string) (*tree.Tree, error)
	AllSyntaxTrees(input string) ([]*tree.Tree, error)
}

// parseGrammar handles POST /api/v1/grammars/{id}/parse?engine=earley|cyk&all=true|false.
// The cyk engine requires the cached CNF-normalized grammar; earley runs
// directly against the grammar as registered.
func (srv *Server) parseGrammar(req *http.Request) result.Result {
	id := requireIDParam(req)

	rec, err := srv.db.Grammars().GetByID(req.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			return result.NotFound("grammar %s not found", id)
		}
		return result.InternalServerError("get grammar: %s", err.Error())
	}

	var body ParseRequest
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), "decode request: %s", err.Error())
	}

	engineName := req.URL.Query().Get("engine")
	if engineName == "" {
		engineName = "earley"
	}

	var eng engine
	switch engineName {
	case "earley":
		eng = earley.New(rec.Source)
	case "cyk":
		eng = cyk.New(rec.Normalized)
	default:
		return result.BadRequest(fmt.Sprintf("engine must be one of 'earley', 'cyk', got %q", engineName), "invalid engine %q", engineName)
	}

	all := req.URL.Query().Get("all") == "true"

	if all {
		trees, err := eng.AllSyntaxTrees(body.Input)
		if err != nil {
			return result.OK(parseFailure(err), "parse failed: %s", err.Error())
		}
		return result.OK(ParseResponse{Recognized: true, Trees: trees}, "parsed (all derivations)")
	}

	t, err := eng.SyntaxTree(body.Input)
	if err != nil {
		return result.OK(parseFailure(err), "parse failed: %s", err.Error())
	}
	return result.OK(ParseResponse{Recognized: true, Tree: t}, "parsed")
}

func parseFailure(err error) ParseResponse {
	if se, ok := err.(cfgerr.SyntaxError); ok {
		return ParseResponse{Recognized: false, Error: newSyntaxErrorJSON(se)}
	}
	return ParseResponse{Recognized: false, Error: &SyntaxErrorJSON{Message: err.Error(), FullReport: err.Error()}}
}
