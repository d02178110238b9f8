package armcache

import (
	"go/ast"
	"go/build"
	"go/parser"
	"go/token"
	"os"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pboyd/armcache/internal/asmtext"
)

func importFor(t *testing.T, goos, goarch string, tags ...string) *build.Package {
	t.Helper()

	ctx := build.Default
	ctx.GOOS = goos
	ctx.GOARCH = goarch
	ctx.CgoEnabled = false
	ctx.BuildTags = tags

	pkg, err := ctx.ImportDir(".", 0)
	require.NoError(t, err)
	return pkg
}

func TestBuildSelection(t *testing.T) {
	tests := []struct {
		goos, goarch string
		tags         []string
		routines     []string
		binding      []string
		debug        string
	}{
		{"linux", "arm", nil, []string{"cache_arm.s"}, []string{"cache_arm.go", "maintain.go"}, "debug_off.go"},
		{"tamago", "arm", nil, []string{"cache_arm.s"}, []string{"cache_arm.go", "maintain.go"}, "debug_off.go"},
		{"linux", "arm64", nil, []string{"cache_arm64.s"}, []string{"cache_arm64.go", "maintain.go"}, "debug_off.go"},
		{"linux", "arm64", []string{"armcache_debug"}, []string{"cache_arm64.s"}, []string{"cache_arm64.go", "maintain.go"}, "debug_on.go"},
		{"linux", "amd64", nil, nil, nil, "debug_off.go"},
		{"linux", "riscv64", nil, nil, nil, "debug_off.go"},
	}

	for _, tc := range tests {
		t.Run(tc.goos+"/"+tc.goarch, func(t *testing.T) {
			assert := assert.New(t)
			pkg := importFor(t, tc.goos, tc.goarch, tc.tags...)

			assert.Equal(tc.routines, pkg.SFiles)

			var binding []string
			for _, f := range pkg.GoFiles {
				if f == "cache_arm.go" || f == "cache_arm64.go" || f == "maintain.go" {
					binding = append(binding, f)
				}
			}
			assert.Equal(tc.binding, binding)

			assert.Contains(pkg.GoFiles, "op.go")
			assert.Equal(tc.goarch == "arm64", slices.Contains(pkg.GoFiles, "range.go"), "range.go")
			assert.Contains(pkg.GoFiles, tc.debug)
			assert.False(slices.Contains(pkg.GoFiles, "debug_on.go") && slices.Contains(pkg.GoFiles, "debug_off.go"))
		})
	}
}

// funcs returns the functions declared in a Go file, keyed by name.
func funcs(t *testing.T, path string) map[string]*ast.FuncDecl {
	t.Helper()

	f, err := parser.ParseFile(token.NewFileSet(), path, nil, 0)
	require.NoError(t, err)

	decls := map[string]*ast.FuncDecl{}
	for _, d := range f.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Recv == nil {
			decls[fn.Name.Name] = fn
		}
	}
	return decls
}

// calls returns the names of the functions called directly by fn, in order.
// Functions implemented in assembly have no body and call nothing.
func calls(fn *ast.FuncDecl) []string {
	if fn.Body == nil {
		return nil
	}

	var names []string
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok {
			if id, ok := call.Fun.(*ast.Ident); ok {
				names = append(names, id.Name)
			}
		}
		return true
	})
	return names
}

func TestCalls(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "calls.go", `package p
func leaf()
func wrapper() {
	leaf()
	if true {
		helper(1)
	}
}
`, 0)
	require.NoError(t, err)

	leaf := f.Decls[0].(*ast.FuncDecl)
	wrapper := f.Decls[1].(*ast.FuncDecl)

	assert.Nil(t, leaf.Body)
	assert.Empty(t, calls(leaf))
	assert.Equal(t, []string{"leaf", "helper"}, calls(wrapper))
}

func TestBinding_ARM(t *testing.T) {
	decls := funcs(t, "cache_arm.go")

	for name, routine := range map[string]string{
		"Clean":           "cleanDataCache",
		"Invalidate":      "invalidateDataCache",
		"CleanInvalidate": "cleanInvalidateDataCache",
	} {
		t.Run(name, func(t *testing.T) {
			fn, ok := decls[name]
			require.True(t, ok)
			assert.Equal(t, []string{routine, "dmb"}, calls(fn))
		})
	}

	assert.NotContains(t, decls, "FlushInstructionCacheRange")
	assert.NotContains(t, decls, "FlushDataCacheRange")
}

func TestBinding_ARM64(t *testing.T) {
	decls := funcs(t, "cache_arm64.go")

	for name, routine := range map[string]string{
		"Clean":           "cleanDataCache",
		"Invalidate":      "invalidateDataCache",
		"CleanInvalidate": "cleanInvalidateDataCache",
	} {
		t.Run(name, func(t *testing.T) {
			fn, ok := decls[name]
			require.True(t, ok)
			assert.Equal(t, []string{routine}, calls(fn))
		})
	}

	for name, routine := range map[string]string{
		"FlushInstructionCacheRange": "flushInstructionCacheRange",
		"FlushDataCacheRange":        "flushDataCacheRange",
	} {
		t.Run(name, func(t *testing.T) {
			fn, ok := decls[name]
			require.True(t, ok)
			assert.Equal(t, []string{"checkRange", routine}, calls(fn))
			assert.Len(t, fn.Type.Params.List, 1, "from, to share one field")
		})
	}

	assert.NotContains(t, decls, "dmb")
	for name, fn := range decls {
		assert.NotContains(t, calls(fn), "dmb", name)
	}
}

func parseRoutines(t *testing.T, path string) []asmtext.Routine {
	t.Helper()

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	routines, err := asmtext.Parse(f)
	require.NoError(t, err)
	return routines
}

// Every body-less Go declaration must have a TEXT block and the other way
// round.
func TestRoutinesMatchDeclarations(t *testing.T) {
	for _, arch := range []string{"arm", "arm64"} {
		t.Run(arch, func(t *testing.T) {
			var declared []string
			for name, fn := range funcs(t, "cache_"+arch+".go") {
				if fn.Body == nil {
					declared = append(declared, name)
				}
			}

			var defined []string
			for _, rt := range parseRoutines(t, "cache_"+arch+".s") {
				defined = append(defined, rt.Name)
			}

			assert.ElementsMatch(t, declared, defined)
		})
	}
}

func TestRoutineEncodings(t *testing.T) {
	for _, arch := range []string{"arm", "arm64"} {
		for _, rt := range parseRoutines(t, "cache_"+arch+".s") {
			assert.NoError(t, asmtext.Verify(arch, rt), "%s %s", arch, rt.Name)
			assert.Equal(t, "RET", rt.Ops[len(rt.Ops)-1], "%s %s", arch, rt.Name)
		}
	}
}

func decodeRoutine(t *testing.T, arch string, routines []asmtext.Routine, name string) []asmtext.Inst {
	t.Helper()

	rt, ok := asmtext.Find(routines, name)
	require.True(t, ok, name)
	insts, err := asmtext.DecodeRoutine(arch, rt)
	require.NoError(t, err)
	return insts
}

func texts(insts []asmtext.Inst, class asmtext.Class) []string {
	var out []string
	for _, inst := range insts {
		if inst.Class == class {
			out = append(out, inst.Text)
		}
	}
	return out
}

func TestRoutines_ARM(t *testing.T) {
	routines := parseRoutines(t, "cache_arm.s")

	for _, name := range []string{"cleanDataCache", "invalidateDataCache", "cleanInvalidateDataCache"} {
		t.Run(name, func(t *testing.T) {
			insts := decodeRoutine(t, "arm", routines, name)
			assert.Equal(t, []string{"ISB SY", "DSB SY", "ISB SY"}, asmtext.Barriers(insts))

			rt, _ := asmtext.Find(routines, name)
			assert.Contains(t, rt.Ops, "MCR")
			assert.Contains(t, rt.Ops, "MRC")
			assert.Contains(t, rt.Ops, "CLZ")
		})
	}

	insts := decodeRoutine(t, "arm", routines, "dmb")
	assert.Equal(t, []string{"DMB SY"}, asmtext.Barriers(insts))
}

func TestRoutines_ARM64(t *testing.T) {
	routines := parseRoutines(t, "cache_arm64.s")

	for name, op := range map[string]string{
		"cleanDataCache":           "DC CSW, X9",
		"invalidateDataCache":      "DC ISW, X9",
		"cleanInvalidateDataCache": "DC CISW, X9",
	} {
		t.Run(name, func(t *testing.T) {
			insts := decodeRoutine(t, "arm64", routines, name)
			assert.Equal(t, []string{op}, texts(insts, asmtext.DataMaintenance))
			assert.Equal(t, []string{"ISB SY", "DSB SY", "ISB SY"}, asmtext.Barriers(insts))
		})
	}

	t.Run("flushDataCacheRange", func(t *testing.T) {
		insts := decodeRoutine(t, "arm64", routines, "flushDataCacheRange")
		assert.Equal(t, []string{"DC CIVAC, X0"}, texts(insts, asmtext.DataMaintenance))
		assert.Equal(t, []string{"DSB SY"}, asmtext.Barriers(insts))
		assert.Equal(t, asmtext.Barrier, insts[len(insts)-1].Class)
	})

	t.Run("flushInstructionCacheRange", func(t *testing.T) {
		insts := decodeRoutine(t, "arm64", routines, "flushInstructionCacheRange")

		var seq []string
		for _, inst := range insts {
			seq = append(seq, inst.Text)
		}
		assert.Equal(t, []string{
			"DC CVAU, X6",
			"DSB ISH",
			"IC IVAU, X6",
			"DSB ISH",
			"ISB SY",
		}, seq)
	})

	// Ordering comes from the DSBs inside the routines; there is no DMB.
	for _, rt := range routines {
		insts, err := asmtext.DecodeRoutine("arm64", rt)
		require.NoError(t, err)
		for _, b := range asmtext.Barriers(insts) {
			assert.NotContains(t, b, "DMB", rt.Name)
		}
	}
}
