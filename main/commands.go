package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/rawbytedev/ipcstruct"
	"github.com/rawbytedev/ipcstruct/internal/config"
	"github.com/rawbytedev/ipcstruct/internal/logging"
	"github.com/rawbytedev/ipcstruct/pkg/envelope"
	"github.com/rawbytedev/ipcstruct/pkg/schema"
)

func parseCompression(s string) (envelope.Compression, error) {
	c, err := envelope.ParseCompression(s)
	if err != nil {
		return c, fmt.Errorf("%w: %v", errUsage, err)
	}
	return c, nil
}

func registry(cfg config.Config) (*schema.Registry, error) {
	if len(cfg.Schemas) == 0 {
		return nil, fmt.Errorf("%w: no definition sources, pass --schema or set schemas in %s", errUsage, config.DefaultFile)
	}
	reg, err := schema.LoadFiles(cfg.Schemas...)
	if err != nil {
		return nil, err
	}
	logging.L().Debug().Strs("sources", cfg.Schemas).Int("structs", reg.Len()).Msg("registry loaded")
	return reg, nil
}

func outputPath(cfg config.Config, p string) string {
	if filepath.IsAbs(p) || cfg.OutputDir == "" {
		return p
	}
	return filepath.Join(cfg.OutputDir, p)
}

func cmdCompile(cfg config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("compile", pflag.ContinueOnError)
	out := fs.StringP("output", "o", "", "compiled registry file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if *out == "" {
		return fmt.Errorf("%w: compile needs -o", errUsage)
	}
	if fs.NArg() > 0 {
		cfg.Schemas = fs.Args()
	}
	reg, err := registry(cfg)
	if err != nil {
		return err
	}
	data, err := schema.Compile(reg)
	if err != nil {
		return err
	}
	path := outputPath(cfg, *out)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "compiled %d structures into %s (%d bytes)\n", reg.Len(), path, len(data))
	return nil
}

func cmdDescribe(cfg config.Config, args []string, stdout io.Writer) error {
	reg, err := registry(cfg)
	if err != nil {
		return err
	}
	names := args
	if len(names) == 0 {
		names = reg.Names()
	}
	for i, name := range names {
		sc, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		describe(stdout, sc)
	}
	return nil
}

func describe(w io.Writer, sc *schema.Schema) {
	fmt.Fprintf(w, "%s size=%d align=%d id=%016x\n", sc.Name(), sc.Size(), sc.Align(), sc.ID())
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "  OFFSET\tSIZE\tFIELD\tTYPE")
	for _, f := range sc.Fields() {
		typ := f.Kind.String()
		if f.Kind == schema.KindStruct {
			typ = f.Nested
		}
		if f.IsArray() {
			typ += "[" + strconv.Itoa(f.ArrayLen) + "]"
		}
		fmt.Fprintf(tw, "  %d\t%d\t%s\t%s\n", f.Offset, f.Size(), f.Name, typ)
	}
	tw.Flush()
}

func cmdNew(cfg config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("new", pflag.ContinueOnError)
	out := fs.StringP("output", "o", "", "envelope file (default NAME.ipsf)")
	sets := fs.StringArray("set", nil, "field assignment, path=value; path is name, name[i] or a dotted nested path")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: new takes one structure name", errUsage)
	}
	reg, err := registry(cfg)
	if err != nil {
		return err
	}
	s, err := ipcstruct.NewNamed(reg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer s.Release()

	for _, a := range *sets {
		path, raw, ok := strings.Cut(a, "=")
		if !ok {
			return fmt.Errorf("%w: --set %q is not path=value", errUsage, a)
		}
		if err := assign(s, strings.TrimSpace(path), raw); err != nil {
			return err
		}
	}

	frame, err := envelope.Encode(s, envelope.Options{Compression: cfg.Compression})
	if err != nil {
		return err
	}
	name := *out
	if name == "" {
		name = s.Name() + ".ipsf"
	}
	path := outputPath(cfg, name)
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "%s -> %s (%d bytes)\n", s, path, len(frame))
	return nil
}

// assign sets one field addressed by path. Intermediate segments must be
// struct fields and are walked through views, so the write lands in s.
func assign(s *ipcstruct.Struct, path, raw string) error {
	segs := strings.Split(path, ".")
	cur := s
	for _, seg := range segs[:len(segs)-1] {
		name, idx, indexed, err := splitIndex(seg)
		if err != nil {
			return err
		}
		if indexed {
			cur, err = cur.ViewAt(name, idx)
		} else {
			cur, err = cur.View(name)
		}
		if err != nil {
			return err
		}
	}
	name, idx, indexed, err := splitIndex(segs[len(segs)-1])
	if err != nil {
		return err
	}
	f, err := cur.Schema().Field(name)
	if err != nil {
		return err
	}
	v, err := ipcstruct.Parse(f.Kind, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if indexed {
		return cur.SetAt(name, idx, v)
	}
	return cur.Set(name, v)
}

func splitIndex(seg string) (name string, idx int, indexed bool, err error) {
	open := strings.IndexByte(seg, '[')
	if open < 0 {
		return seg, 0, false, nil
	}
	if !strings.HasSuffix(seg, "]") {
		return "", 0, false, fmt.Errorf("%w: bad index in %q", errUsage, seg)
	}
	idx, err = strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil {
		return "", 0, false, fmt.Errorf("%w: bad index in %q", errUsage, seg)
	}
	return seg[:open], idx, true, nil
}

func cmdDump(cfg config.Config, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("dump", pflag.ContinueOnError)
	view := fs.Bool("view", false, "bind a view over the frame instead of decoding a copy")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: dump takes one file", errUsage)
	}
	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	h, err := envelope.Peek(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s version=%d compression=%s id=%016x raw=%d payload=%d\n",
		h.Name, h.Version, h.Compression(), h.SchemaID, h.RawLen, h.PayloadLen)

	reg, err := registry(cfg)
	if err != nil {
		return err
	}
	var s *ipcstruct.Struct
	if *view {
		s, err = envelope.View(reg, data)
	} else {
		s, err = envelope.Decode(reg, data)
	}
	if err != nil {
		return err
	}
	defer s.Release()
	fmt.Fprintln(stdout, s)
	return nil
}
