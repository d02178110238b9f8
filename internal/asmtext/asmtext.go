// Package asmtext reads Go assembly source and decodes the instructions it
// spells out as raw WORD encodings.
package asmtext

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrSyntax is returned for source lines that cannot be parsed.
var ErrSyntax = errors.New("syntax error")

// A Word is one WORD directive.
type Word struct {
	Line    int
	Value   uint32
	Comment string
}

// Mnemonic returns the first token of the WORD's comment, upper-cased, or ""
// when there is no comment.
func (w Word) Mnemonic() string {
	fields := strings.Fields(w.Comment)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(strings.TrimRight(fields[0], ","))
}

// Routine is one TEXT block.
type Routine struct {
	Name  string // symbol without the package prefix
	Line  int
	Flags string
	Frame string

	// Words holds the WORD directives in source order.
	Words []Word

	// Ops holds the mnemonic of every instruction line, WORDs included as
	// "WORD", in source order.
	Ops []string
}

// Parse reads Go assembly from r.
func Parse(r io.Reader) ([]Routine, error) {
	var (
		routines []Routine
		cur      *Routine
		lineNo   int
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++

		code, comment := splitComment(scanner.Text())
		code = strings.TrimSpace(code)
		if code == "" || strings.HasPrefix(code, "#") {
			continue
		}

		// Labels may share a line with an instruction.
		if i := strings.Index(code, ":"); i > 0 && !strings.ContainsAny(code[:i], " \t,$(") {
			code = strings.TrimSpace(code[i+1:])
			if code == "" {
				continue
			}
		}

		op, operands := code, ""
		if i := strings.IndexAny(code, " \t"); i >= 0 {
			op, operands = code[:i], strings.TrimSpace(code[i+1:])
		}

		switch op {
		case "TEXT":
			rt, err := parseText(operands)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			rt.Line = lineNo
			routines = append(routines, rt)
			cur = &routines[len(routines)-1]
			continue

		case "WORD":
			if cur == nil {
				return nil, fmt.Errorf("line %d: %w: WORD outside TEXT", lineNo, ErrSyntax)
			}
			v, err := parseWord(operands)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur.Words = append(cur.Words, Word{
				Line:    lineNo,
				Value:   v,
				Comment: strings.TrimSpace(comment),
			})
		}

		if cur != nil {
			cur.Ops = append(cur.Ops, op)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return routines, nil
}

// Find returns the routine with the given name.
func Find(routines []Routine, name string) (Routine, bool) {
	for _, rt := range routines {
		if rt.Name == name {
			return rt, true
		}
	}
	return Routine{}, false
}

func splitComment(line string) (code, comment string) {
	code, comment, _ = strings.Cut(line, "//")
	return code, comment
}

// parseText parses the operands of "TEXT ·name(SB), FLAGS, $frame".
func parseText(operands string) (Routine, error) {
	parts := strings.Split(operands, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	sym := parts[0]
	if !strings.HasSuffix(sym, "(SB)") {
		return Routine{}, fmt.Errorf("%w: TEXT symbol %q", ErrSyntax, sym)
	}
	sym = strings.TrimSuffix(sym, "(SB)")
	if i := strings.LastIndex(sym, "·"); i >= 0 {
		sym = sym[i+len("·"):]
	}
	if sym == "" {
		return Routine{}, fmt.Errorf("%w: empty TEXT symbol", ErrSyntax)
	}

	rt := Routine{Name: sym}
	switch len(parts) {
	case 1:
	case 2:
		rt.Frame = parts[1]
	default:
		rt.Flags = strings.Join(parts[1:len(parts)-1], ",")
		rt.Frame = parts[len(parts)-1]
	}
	return rt, nil
}

func parseWord(operand string) (uint32, error) {
	operand = strings.TrimSpace(operand)
	if !strings.HasPrefix(operand, "$") {
		return 0, fmt.Errorf("%w: WORD operand %q", ErrSyntax, operand)
	}
	v, err := strconv.ParseUint(operand[1:], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: WORD operand %q: %v", ErrSyntax, operand, err)
	}
	return uint32(v), nil
}
