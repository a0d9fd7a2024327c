// Package when evaluates boolean "when" condition strings against a
// variable environment describing the current window state. Expressions
// use expr-lang syntax (github.com/expr-lang/expr); compiled programs are
// cached in a bounded LRU so repeated queries do not recompile.
package when

import (
	"container/list"
	"log/slog"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultCacheSize bounds the compiled-program cache. Command "when"
// clauses come from manifests, so the working set is small; the bound
// only guards long-running processes against pathological churn.
const DefaultCacheSize = 256

// Variables is the evaluation environment derived from the window state.
// Field tags are the variable names visible to condition expressions,
// e.g. "terminalFocus && hyperlinkProtocol == 'https'".
type Variables struct {
	TerminalFocus          bool   `expr:"terminalFocus"`
	WindowFocus            bool   `expr:"windowFocus"`
	HyperlinkURL           string `expr:"hyperlinkURL"`
	HyperlinkProtocol      string `expr:"hyperlinkProtocol"`
	HyperlinkDomain        string `expr:"hyperlinkDomain"`
	HyperlinkFileExtension string `expr:"hyperlinkFileExtension"`
}

// Evaluator compiles and evaluates condition expressions.
type Evaluator struct {
	mu      sync.Mutex
	cache   map[string]*list.Element
	lru     *list.List
	maxSize int
}

type cacheEntry struct {
	expression string
	program    *vm.Program
}

// NewEvaluator creates an Evaluator with the default cache size.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache:   make(map[string]*list.Element, DefaultCacheSize),
		lru:     list.New(),
		maxSize: DefaultCacheSize,
	}
}

// Evaluate evaluates the condition expression against vars. An empty
// expression is always true. Compilation and evaluation failures are
// logged and evaluate to false; a broken condition must never abort the
// query that is filtering on it.
func (e *Evaluator) Evaluate(expression string, vars Variables) bool {
	if expression == "" {
		return true
	}

	program, err := e.getOrCompile(expression)
	if err != nil {
		slog.Warn("[WhenEvaluator] failed to compile condition", "expression", expression, "error", err)
		return false
	}

	result, err := expr.Run(program, vars)
	if err != nil {
		slog.Warn("[WhenEvaluator] failed to evaluate condition", "expression", expression, "error", err)
		return false
	}

	b, ok := result.(bool)
	if !ok {
		slog.Warn("[WhenEvaluator] condition returned non-boolean result", "expression", expression)
		return false
	}
	return b
}

func (e *Evaluator) getOrCompile(expression string) (*vm.Program, error) {
	e.mu.Lock()
	if elem, ok := e.cache[expression]; ok {
		if elem != e.lru.Front() {
			e.lru.MoveToFront(elem)
		}
		program := elem.Value.(*cacheEntry).program
		e.mu.Unlock()
		return program, nil
	}
	e.mu.Unlock()

	program, err := expr.Compile(expression,
		expr.Env(Variables{}),
		expr.AsBool(),
		expr.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if elem, ok := e.cache[expression]; ok {
		// Another caller compiled it first; keep theirs.
		return elem.Value.(*cacheEntry).program, nil
	}
	elem := e.lru.PushFront(&cacheEntry{expression: expression, program: program})
	e.cache[expression] = elem
	for e.lru.Len() > e.maxSize {
		oldest := e.lru.Back()
		if oldest == nil {
			break
		}
		delete(e.cache, oldest.Value.(*cacheEntry).expression)
		e.lru.Remove(oldest)
	}
	return program, nil
}

// Len returns the number of cached compiled programs.
func (e *Evaluator) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lru.Len()
}
