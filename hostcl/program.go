// Copyright ©2024 The GUDA Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostcl

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/LynnColeArt/offbench"
)

// ArgKind is the kind of a kernel parameter.
type ArgKind int

const (
	// ArgBuffer is a __global pointer parameter.
	ArgBuffer ArgKind = iota
	// ArgInt32 is a 32-bit integer scalar parameter.
	ArgInt32
)

func (k ArgKind) String() string {
	if k == ArgInt32 {
		return "int32"
	}
	return "buffer"
}

// KernelFunc executes one work-item. It is called concurrently from
// multiple goroutines and must only write the elements it owns.
type KernelFunc func(item WorkItem, args Args)

type registration struct {
	params []ArgKind
	fn     KernelFunc
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]registration)
)

// RegisterKernel binds the host implementation of the entry point name.
// It panics if name is registered twice or fn is nil.
func RegisterKernel(name string, params []ArgKind, fn KernelFunc) {
	if fn == nil {
		panic("hostcl: RegisterKernel fn is nil for " + name)
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("hostcl: RegisterKernel called twice for " + name)
	}
	registry[name] = registration{params: append([]ArgKind(nil), params...), fn: fn}
}

func lookupKernel(name string) (registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[name]
	return r, ok
}

var (
	commentRe = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*`)
	kernelRe  = regexp.MustCompile(`(?:__kernel|\bkernel)\s+void\s+(\w+)\s*\(([^)]*)\)`)
)

// declaration is a kernel entry point found in program source.
type declaration struct {
	name   string
	params []ArgKind
}

// build checks the program source and binds the named entry point to its
// registered host implementation. Every problem is reported in the build
// log, one per line, prefixed with the source line.
func build(q *Queue, source, name string) (*kernel, error) {
	src := commentRe.ReplaceAllStringFunc(source, blankKeepLines)

	var log []string
	log = append(log, checkBalance(src)...)

	decls, errs := parseDeclarations(src)
	log = append(log, errs...)

	decl, found := decls[name]
	if !found {
		names := make([]string, 0, len(decls))
		for n := range decls {
			names = append(names, n)
		}
		sort.Strings(names)
		log = append(log, fmt.Sprintf("error: no kernel named %q (found: %s)", name, strings.Join(names, ", ")))
	}
	if len(log) > 0 {
		return nil, offbench.NewBuildError("Build", fmt.Sprintf("program build failed for kernel %s", name),
			strings.Join(log, "\n"), nil)
	}

	reg, ok := lookupKernel(name)
	if !ok {
		return nil, offbench.NewBuildError("Build", fmt.Sprintf("program build failed for kernel %s", name),
			fmt.Sprintf("error: kernel %q has no implementation on %s", name, q.device.Name()), nil)
	}
	if !sameParams(decl.params, reg.params) {
		return nil, offbench.NewBuildError("Build", fmt.Sprintf("program build failed for kernel %s", name),
			fmt.Sprintf("error: kernel %q declares (%s), device implementation takes (%s)",
				name, joinKinds(decl.params), joinKinds(reg.params)), nil)
	}
	return newKernel(q, name, reg), nil
}

func blankKeepLines(s string) string {
	return strings.Repeat("\n", strings.Count(s, "\n"))
}

// checkBalance reports unbalanced brackets with the line they occur on.
func checkBalance(src string) []string {
	type open struct {
		ch   rune
		line int
	}
	pairs := map[rune]rune{')': '(', '}': '{', ']': '['}
	var stack []open
	var errs []string
	line := 1
	for _, ch := range src {
		switch ch {
		case '\n':
			line++
		case '(', '{', '[':
			stack = append(stack, open{ch, line})
		case ')', '}', ']':
			if len(stack) == 0 || stack[len(stack)-1].ch != pairs[ch] {
				errs = append(errs, fmt.Sprintf("<source>:%d: error: unexpected '%c'", line, ch))
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	for _, o := range stack {
		errs = append(errs, fmt.Sprintf("<source>:%d: error: unclosed '%c'", o.line, o.ch))
	}
	return errs
}

func parseDeclarations(src string) (map[string]declaration, []string) {
	decls := make(map[string]declaration)
	var errs []string
	for _, m := range kernelRe.FindAllStringSubmatchIndex(src, -1) {
		name := src[m[2]:m[3]]
		line := 1 + strings.Count(src[:m[0]], "\n")
		var params []ArgKind
		for _, p := range strings.Split(src[m[4]:m[5]], ",") {
			p = strings.TrimSpace(p)
			if p == "" || p == "void" {
				continue
			}
			k, ok := paramKind(p)
			if !ok {
				errs = append(errs, fmt.Sprintf("<source>:%d: error: unsupported parameter %q in kernel %s", line, p, name))
				continue
			}
			params = append(params, k)
		}
		decls[name] = declaration{name: name, params: params}
	}
	return decls, errs
}

func paramKind(p string) (ArgKind, bool) {
	if strings.Contains(p, "*") {
		return ArgBuffer, true
	}
	fields := strings.Fields(p)
	for _, f := range fields[:len(fields)-1] {
		switch f {
		case "int", "uint", "int32_t", "uint32_t":
			return ArgInt32, true
		}
	}
	return 0, false
}

func sameParams(a, b []ArgKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinKinds(ks []ArgKind) string {
	s := make([]string, len(ks))
	for i, k := range ks {
		s[i] = k.String()
	}
	return strings.Join(s, ", ")
}
