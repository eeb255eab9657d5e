// Copyright The OpenTelemetry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package werror provides an error wrapper that records where an error was
// wrapped, carries an optional context map, and tags errors with the
// transcoder's error taxonomy so callers can distinguish recoverable
// warnings from fatal stream failures.
package werror

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Kind classifies an error into the taxonomy the stream driver exposes
// through get_last_error.
type Kind int

const (
	// KindUnknown is the zero value; errors wrapped without a kind keep
	// whatever kind their cause carries, or Unknown if none do.
	KindUnknown Kind = iota
	// KindIO covers reader failures: file open, decompression, index load,
	// region query.
	KindIO
	// KindFormat covers malformed records or headers past the reader's
	// tolerance.
	KindFormat
	// KindSchemaConflict covers header fields that cannot be reconciled
	// with the reserved-tag tables in a way that permits a coherent
	// Arrow mapping.
	KindSchemaConflict
	// KindResource covers allocation failures.
	KindResource
	// KindUsage covers invalid options.
	KindUsage
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "IoError"
	case KindFormat:
		return "FormatError"
	case KindSchemaConflict:
		return "SchemaConflict"
	case KindResource:
		return "ResourceError"
	case KindUsage:
		return "UsageError"
	default:
		return "Unknown"
	}
}

// Wrapper wraps an error with the file, line, and function where it was
// wrapped, an error Kind, and an optional context map.
type Wrapper struct {
	err error

	kind     Kind
	file     string
	line     int
	function string
	context  map[string]interface{}
}

// Error renders the wrap site as function:line, then the Kind (if any),
// the context entries (if any), and finally the wrapped error's message.
func (w Wrapper) Error() string {
	var msg strings.Builder

	msg.WriteString(w.function)
	msg.WriteString(":")
	msg.WriteString(strconv.Itoa(w.line))

	if w.kind != KindUnknown {
		msg.WriteString("[")
		msg.WriteString(w.kind.String())
		msg.WriteString("]")
	}

	if w.context != nil {
		msg.WriteString("{")
		first := true
		for k, v := range w.context {
			if !first {
				msg.WriteString(",")
			}
			first = false
			msg.WriteString(k)
			msg.WriteString("=")
			msg.WriteString(fmt.Sprintf("%v", v))
		}
		msg.WriteString("}")
	}

	if w.err != nil {
		msg.WriteString("->")
		msg.WriteString(w.err.Error())
	}

	return msg.String()
}

// Unwrap returns the wrapped error.
func (w Wrapper) Unwrap() error {
	return w.err
}

// Kind returns the error's classification, looking through nested Wrappers
// if this wrapper itself carries KindUnknown.
func (w Wrapper) Kind() Kind {
	if w.kind != KindUnknown {
		return w.kind
	}
	var inner Wrapper
	if ok := asWrapper(w.err, &inner); ok {
		return inner.Kind()
	}
	return KindUnknown
}

func asWrapper(err error, target *Wrapper) bool {
	for err != nil {
		if w, ok := err.(Wrapper); ok {
			*target = w
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// File returns the file where the error was wrapped.
func (w Wrapper) File() string { return w.file }

// Line returns the line where the error was wrapped.
func (w Wrapper) Line() int { return w.line }

// Function returns the function where the error was wrapped.
func (w Wrapper) Function() string { return w.function }

// Wrap wraps err with the current file, line, and function, preserving any
// Kind already carried by err.
func Wrap(err error) error {
	return wrap(err, KindUnknown, nil)
}

// plainError is a trivial string-backed error, used as the innermost
// cause under WrapKind at call sites that don't already have a
// lower-level error to wrap (e.g. a validation check rather than a
// failed syscall).
type plainError string

func (e plainError) Error() string { return string(e) }

// PlainError constructs a bare error from a message, for use as the
// cause passed to WrapKind/WrapWithMsg when there is no underlying error
// to wrap.
func PlainError(msg string) error {
	return plainError(msg)
}

// WrapWithContext wraps err with the current file, line, function, and the
// given context.
func WrapWithContext(err error, context map[string]interface{}) error {
	return wrap(err, KindUnknown, context)
}

// WrapWithMsg wraps err with a "msg" context entry.
func WrapWithMsg(err error, msg string) error {
	return wrap(err, KindUnknown, map[string]interface{}{"msg": msg})
}

// WrapKind wraps err and tags it with kind, for use at the point an error
// taxonomy decision is made (e.g. a SchemaConflict detected mid-stream).
func WrapKind(err error, kind Kind, msg string) error {
	var ctx map[string]interface{}
	if msg != "" {
		ctx = map[string]interface{}{"msg": msg}
	}
	return wrap(err, kind, ctx)
}

func wrap(err error, kind Kind, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	pc, file, line, _ := runtime.Caller(2)
	fn := runtime.FuncForPC(pc)
	name := "unknown"
	if fn != nil {
		name = fn.Name()
	}

	return Wrapper{
		err:      err,
		kind:     kind,
		file:     file,
		line:     line,
		function: name,
		context:  context,
	}
}
