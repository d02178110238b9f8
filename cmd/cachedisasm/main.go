// The cachedisasm tool lists the raw instruction encodings in the cache
// maintenance routines and checks them against their mnemonic comments.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"k8s.io/klog"

	"github.com/pboyd/armcache/internal/asmtext"
)

var (
	srcDir = flag.String("src", ".", "Directory holding cache_<arch>.s.")
	arch   = flag.String("arch", "", "Architecture to list (arm or arm64). Both when empty.")
	check  = flag.Bool("check", false, "Only verify the encodings; exit non-zero on a mismatch.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	archs := []string{"arm", "arm64"}
	if *arch != "" {
		archs = []string{*arch}
	}

	failed := false
	for _, a := range archs {
		path := filepath.Join(*srcDir, "cache_"+a+".s")
		routines, err := load(path)
		if err != nil {
			klog.Exitf("Failed to read %q: %v", path, err)
		}
		klog.V(1).Infof("%s: %d routines", path, len(routines))

		if *check {
			if !verify(a, routines) {
				failed = true
			}
			continue
		}

		if err := list(os.Stdout, a, routines); err != nil {
			klog.Exitf("%s: %v", path, err)
		}
	}

	if failed {
		klog.Flush()
		os.Exit(1)
	}
}

func load(path string) ([]asmtext.Routine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return asmtext.Parse(f)
}

func verify(arch string, routines []asmtext.Routine) bool {
	ok := true
	for _, rt := range routines {
		if err := asmtext.Verify(arch, rt); err != nil {
			klog.Errorf("%s: %v", arch, err)
			ok = false
			continue
		}
		klog.Infof("%s %s: %d encodings ok", arch, rt.Name, len(rt.Words))
	}
	return ok
}

func list(w io.Writer, arch string, routines []asmtext.Routine) error {
	for _, rt := range routines {
		fmt.Fprintf(w, "%s %s (%s):\n", arch, rt.Name, rt.Frame)
		if len(rt.Words) == 0 {
			fmt.Fprintln(w, "\t(no raw encodings)")
			continue
		}

		out, err := asmtext.Disassemble(arch, rt)
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	}
	return nil
}
