package kernels

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	identifier   = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// wgslReserved is the WGSL reserved word list. None of these are keywords, so any
// occurrence outside a comment is an identifier.
var wgslReserved = func() map[string]struct{} {
	words := strings.Fields(`
		NULL Self abstract active alignas alignof as asm asm_fragment async attribute auto await
		become cast catch class co_await co_return co_yield coherent column_major common compile
		compile_fragment concept const_cast consteval constexpr constinit crate debugger decltype
		delete demote demote_to_helper do dynamic_cast enum explicit export extends extern external
		fallthrough filter final finally friend from fxgroup get goto groupshared highp impl
		implements import inline instanceof interface layout lowp macro macro_rules match mediump
		meta mod module move mut mutable namespace new nil noexcept noinline nointerpolation
		non_coherent noncoherent noperspective null nullptr of operator package packoffset
		partition pass patch pixelfragment precise precision premerge priv protected pub public
		readonly ref regardless register reinterpret_cast require resource restrict self set shared
		sizeof smooth snorm static static_assert static_cast std subroutine super target template
		this thread_local throw trait try type typedef typeid typename typeof union unless unorm
		unsafe unsized use using varying virtual volatile wgsl where with writeonly yield`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()

// checkReservedWords scans processed WGSL for reserved words. It reports the first one found
// with its line number.
func checkReservedWords(source string) error {
	keepLines := func(s string) string {
		return strings.Repeat("\n", strings.Count(s, "\n"))
	}
	source = blockComment.ReplaceAllStringFunc(source, keepLines)
	source = lineComment.ReplaceAllString(source, "")

	for i, line := range strings.Split(source, "\n") {
		for _, word := range identifier.FindAllString(line, -1) {
			if _, ok := wgslReserved[word]; ok {
				return fmt.Errorf("%w: %q on line %d", ErrReservedIdentifier, word, i+1)
			}
		}
	}
	return nil
}
