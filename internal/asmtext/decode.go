package asmtext

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
)

// ErrArch is returned for architectures other than arm and arm64.
var ErrArch = errors.New("unsupported architecture")

// Class groups decoded instructions by what they do to the memory system.
type Class int

const (
	Other                  Class = iota // anything else
	Barrier                             // DMB, DSB, ISB
	DataMaintenance                     // DC
	InstructionMaintenance              // IC
)

func (c Class) String() string {
	switch c {
	case Barrier:
		return "barrier"
	case DataMaintenance:
		return "data cache"
	case InstructionMaintenance:
		return "instruction cache"
	}
	return "other"
}

// Inst is a decoded WORD.
type Inst struct {
	Word  Word
	Op    string
	Text  string
	Class Class
}

// Decode decodes one instruction word for arch ("arm" or "arm64").
func Decode(arch string, w Word) (Inst, error) {
	var raw [4]byte
	binary.LittleEndian.PutUint32(raw[:], w.Value)

	switch arch {
	case "arm":
		inst, err := armasm.Decode(raw[:], armasm.ModeARM)
		if err != nil {
			return Inst{}, fmt.Errorf("line %d: decode 0x%08x: %w", w.Line, w.Value, err)
		}
		op, text := inst.Op.String(), inst.String()
		class := armClass(inst.Op)
		if class == Barrier {
			// armasm prints the option as an immediate.
			text = op + " " + barrierOption(w.Value&15)
		}
		return Inst{Word: w, Op: op, Text: text, Class: class}, nil

	case "arm64":
		// arm64asm doesn't know every IC alias, so those are picked out
		// from the SYS encoding first.
		if name, ok := icOp(w.Value); ok {
			text := "IC " + name
			if rt := w.Value & 31; rt != 31 {
				text += fmt.Sprintf(", X%d", rt)
			}
			return Inst{Word: w, Op: "IC", Text: text, Class: InstructionMaintenance}, nil
		}

		inst, err := arm64asm.Decode(raw[:])
		if err != nil {
			return Inst{}, fmt.Errorf("line %d: decode 0x%08x: %w", w.Line, w.Value, err)
		}
		return Inst{Word: w, Op: inst.Op.String(), Text: inst.String(), Class: arm64Class(inst.Op)}, nil
	}

	return Inst{}, fmt.Errorf("%w: %q", ErrArch, arch)
}

// DecodeRoutine decodes every WORD in rt.
func DecodeRoutine(arch string, rt Routine) ([]Inst, error) {
	insts := make([]Inst, 0, len(rt.Words))
	for _, w := range rt.Words {
		inst, err := Decode(arch, w)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rt.Name, err)
		}
		insts = append(insts, inst)
	}
	return insts, nil
}

// Verify checks that the mnemonic in each WORD's comment matches what the
// encoding decodes to.
func Verify(arch string, rt Routine) error {
	insts, err := DecodeRoutine(arch, rt)
	if err != nil {
		return err
	}

	var errs []error
	for _, inst := range insts {
		want := inst.Word.Mnemonic()
		if want == "" {
			errs = append(errs, fmt.Errorf("%s line %d: WORD 0x%08x has no mnemonic comment", rt.Name, inst.Word.Line, inst.Word.Value))
			continue
		}
		if want != inst.Op {
			errs = append(errs, fmt.Errorf("%s line %d: comment says %s, encoding is %s", rt.Name, inst.Word.Line, want, inst.Text))
		}
	}
	return errors.Join(errs...)
}

// Disassemble lists the WORDs of rt, one per line: source line, encoded
// bytes, decoded instruction.
func Disassemble(arch string, rt Routine) (string, error) {
	var buf bytes.Buffer

	for _, w := range rt.Words {
		var raw [4]byte
		binary.LittleEndian.PutUint32(raw[:], w.Value)

		var asm string
		inst, err := Decode(arch, w)
		if err == nil {
			asm = inst.Text
		} else if errors.Is(err, ErrArch) {
			return "", err
		} else {
			asm = "?"
		}
		fmt.Fprintf(&buf, "%5d\t%-8s\t%s\n", w.Line, hex.EncodeToString(raw[:]), asm)
	}

	return buf.String(), nil
}

func armClass(op armasm.Op) Class {
	switch op {
	case armasm.DMB, armasm.DSB, armasm.ISB:
		return Barrier
	}
	return Other
}

func arm64Class(op arm64asm.Op) Class {
	switch op {
	case arm64asm.DMB, arm64asm.DSB, arm64asm.ISB:
		return Barrier
	case arm64asm.DC:
		return DataMaintenance
	case arm64asm.IC:
		return InstructionMaintenance
	}
	return Other
}

func barrierOption(opt uint32) string {
	switch opt {
	case 15:
		return "SY"
	case 14:
		return "ST"
	case 11:
		return "ISH"
	case 10:
		return "ISHST"
	case 7:
		return "NSH"
	case 6:
		return "NSHST"
	case 3:
		return "OSH"
	case 2:
		return "OSHST"
	}
	return fmt.Sprintf("#%#x", opt)
}

// icOp names the IC operation encoded by w, if w is one.
//
//	SYS #op1, C7, Cm, #op2, Xt: 1101 0101 0000 1 op1 0111 CRm op2 Rt
func icOp(w uint32) (string, bool) {
	if w&0xfff8f000 != 0xd5087000 {
		return "", false
	}
	op1 := (w >> 16) & 7
	crm := (w >> 8) & 15
	op2 := (w >> 5) & 7

	switch {
	case op1 == 0 && crm == 1 && op2 == 0:
		return "IALLUIS", true
	case op1 == 0 && crm == 5 && op2 == 0:
		return "IALLU", true
	case op1 == 3 && crm == 5 && op2 == 1:
		return "IVAU", true
	}
	return "", false
}

// Barriers returns the barrier instructions in insts, in order, as
// "OP OPTION" strings such as "DSB SY".
func Barriers(insts []Inst) []string {
	var out []string
	for _, inst := range insts {
		if inst.Class == Barrier {
			out = append(out, strings.ToUpper(inst.Text))
		}
	}
	return out
}
