package sqlite

import (
	"encoding/json"
	"fmt"

	"github.com/dekarrin/cfgparse/grammar"
)

// grammarDTO is the on-disk shape of a grammar.Grammar. grammar.Symbol and
// grammar.Terminal are sum types with unexported payloads (package grammar's
// own Equal/Hash methods are the only thing that ever compares them), so
// there is no exported struct literal to round-trip directly; dtoSymbol and
// dtoTerminal below re-flatten each sum type into an explicit "kind" tag plus
// its payload, the same shape internal/tunascript/ast.go's hand-written
// MarshalBinary/UnmarshalBinary methods use for that package's own sum-typed
// AST nodes.
type grammarDTO struct {
	Start       string            `json:"start"`
	Productions []dtoProduction   `json:"productions"`
	Utility     map[string]bool   `json:"utility,omitempty"`
}

type dtoProduction struct {
	Pattern string        `json:"pattern"`
	RHS     []dtoSymbol   `json:"rhs,omitempty"`
	Chain   []string      `json:"chain,omitempty"`
}

type dtoSymbol struct {
	// Kind is "nt" or "t".
	Kind string     `json:"kind"`
	NT   string     `json:"nt,omitempty"`
	Term *dtoTerminal `json:"term,omitempty"`
}

type dtoTerminal struct {
	// Kind is "literal", "range", or "regex".
	Kind    string `json:"kind"`
	Literal string `json:"literal,omitempty"`
	Lo      rune   `json:"lo,omitempty"`
	Hi      rune   `json:"hi,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

func toDTO(g *grammar.Grammar) grammarDTO {
	dto := grammarDTO{
		Start:   string(g.Start()),
		Utility: map[string]bool{},
	}
	for nt := range g.UtilityNonTerminals() {
		dto.Utility[string(nt)] = true
	}
	for _, p := range g.Productions() {
		dp := dtoProduction{Pattern: string(p.Pattern)}
		for _, nt := range p.Chain {
			dp.Chain = append(dp.Chain, string(nt))
		}
		for _, sym := range p.RHS {
			dp.RHS = append(dp.RHS, toDTOSymbol(sym))
		}
		dto.Productions = append(dto.Productions, dp)
	}
	return dto
}

func toDTOSymbol(sym grammar.Symbol) dtoSymbol {
	if nt, ok := sym.NonTerminal(); ok {
		return dtoSymbol{Kind: "nt", NT: string(nt)}
	}
	t, _ := sym.Terminal()
	return dtoSymbol{Kind: "t", Term: toDTOTerminal(t)}
}

func toDTOTerminal(t grammar.Terminal) *dtoTerminal {
	switch {
	case t.IsLiteral():
		lit, _ := t.Literal()
		return &dtoTerminal{Kind: "literal", Literal: lit}
	case t.IsRange():
		lo, hi, _ := t.Range()
		return &dtoTerminal{Kind: "range", Lo: lo, Hi: hi}
	case t.IsRegex():
		pat, _ := t.Pattern()
		return &dtoTerminal{Kind: "regex", Pattern: pat}
	default:
		return &dtoTerminal{Kind: "literal"}
	}
}

func fromDTO(dto grammarDTO) (*grammar.Grammar, error) {
	var prods []grammar.Production
	for _, dp := range dto.Productions {
		p := grammar.Production{Pattern: grammar.NonTerminal(dp.Pattern)}
		for _, c := range dp.Chain {
			p.Chain = append(p.Chain, grammar.NonTerminal(c))
		}
		for _, ds := range dp.RHS {
			sym, err := fromDTOSymbol(ds)
			if err != nil {
				return nil, err
			}
			p.RHS = append(p.RHS, sym)
		}
		prods = append(prods, p)
	}

	utility := map[grammar.NonTerminal]bool{}
	for nt := range dto.Utility {
		utility[grammar.NonTerminal(nt)] = true
	}

	return grammar.NewGrammarWithUtility(prods, grammar.NonTerminal(dto.Start), utility), nil
}

func fromDTOSymbol(ds dtoSymbol) (grammar.Symbol, error) {
	switch ds.Kind {
	case "nt":
		return grammar.SymNT(grammar.NonTerminal(ds.NT)), nil
	case "t":
		if ds.Term == nil {
			return grammar.Symbol{}, fmt.Errorf("symbol tagged terminal has no payload")
		}
		t, err := fromDTOTerminal(*ds.Term)
		if err != nil {
			return grammar.Symbol{}, err
		}
		return grammar.SymT(t), nil
	default:
		return grammar.Symbol{}, fmt.Errorf("unknown symbol kind %q", ds.Kind)
	}
}

func fromDTOTerminal(dt dtoTerminal) (grammar.Terminal, error) {
	switch dt.Kind {
	case "literal":
		if dt.Literal == "" {
			return grammar.Epsilon, nil
		}
		return grammar.NewLiteral(dt.Literal)
	case "range":
		return grammar.NewRange(dt.Lo, dt.Hi)
	case "regex":
		return grammar.NewRegex(dt.Pattern)
	default:
		return grammar.Terminal{}, fmt.Errorf("unknown terminal kind %q", dt.Kind)
	}
}

// encodedGrammar implements encoding.BinaryMarshaler/BinaryUnmarshaler over a
// grammarDTO, so that it can be passed to rezi.EncBinary/rezi.DecBinary
// exactly the way server/dao/sqlite/sqlite.go passes a *game.State: the DTO
// itself is JSON internally (rezi's own wire format for nested structures
// could not be verified from the retrieved corpus beyond the two top-level
// EncBinary/DecBinary calls, so JSON is used as the documented, verifiable
// payload format rezi is asked to carry).
type encodedGrammar struct {
	dto grammarDTO
}

func (e *encodedGrammar) MarshalBinary() ([]byte, error) {
	return json.Marshal(e.dto)
}

func (e *encodedGrammar) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, &e.dto)
}
