// Package interactive provides the interactive command line of ledhal.
package interactive

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/ledhal/internal/hal"
	"github.com/coreman2200/ledhal/internal/host"
	"github.com/coreman2200/ledhal/internal/pattern"
	"github.com/coreman2200/ledhal/internal/settings"
)

// Shell reads commands against the hardware of a host.
type Shell struct {
	rl   *readline.Instance
	out  io.Writer
	host *host.Host
}

func completer() *readline.PrefixCompleter {
	kinds := make([]readline.PrefixCompleterInterface, 0, 4)
	for _, k := range []hal.ObjectKind{hal.KindID, hal.KindLEDCount, hal.KindGain, hal.KindCustomProp} {
		kinds = append(kinds, readline.PcItem(k.String()))
	}
	patterns := make([]readline.PrefixCompleterInterface, 0, 4)
	for _, k := range pattern.Kinds() {
		patterns = append(patterns, readline.PcItem(string(k)))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("help"),
		readline.PcItem("families"),
		readline.PcItem("list"),
		readline.PcItem("get", kinds...),
		readline.PcItem("set", kinds...),
		readline.PcItem("prop"),
		readline.PcItem("apply"),
		readline.PcItem("fill"),
		readline.PcItem("pixel"),
		readline.PcItem("send"),
		readline.PcItem("show"),
		readline.PcItem("pattern", patterns...),
		readline.PcItem("snapshot"),
		readline.PcItem("restore"),
		readline.PcItem("down"),
		readline.PcItem("quit"),
	)
}

// New creates the shell and its terminal.
func New() (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "ledhal> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{rl: rl, out: rl.Stdout()}, nil
}

// Stdout returns a writer that coordinates with the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.rl.Stdout()
}

// Run reads commands until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc, h *host.Host) {
	defer s.rl.Close()
	s.host = h
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if s.Exec(ctx, line) {
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line and reports whether the shell should quit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "families", "f":
		s.cmdFamilies()
	case "list", "ls":
		s.cmdList()
	case "get":
		err = s.cmdGet(args)
	case "set":
		err = s.cmdSet(args)
	case "prop":
		err = s.cmdProp(args)
	case "apply":
		err = s.cmdApply(args)
	case "fill":
		err = s.cmdFill(args)
	case "pixel":
		err = s.cmdPixel(args)
	case "send":
		err = s.cmdSend(args)
	case "show":
		err = s.withStrip(args, 1, func(st *host.Strip) error { return st.HW.Show() })
	case "pattern":
		err = s.cmdPattern(ctx, args)
	case "snapshot":
		err = s.cmdSnapshot(args)
	case "restore":
		err = s.cmdRestore(args)
	case "down":
		if len(args) != 1 {
			err = usage("down <hw>")
		} else {
			err = s.host.Down(args[0])
		}
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return false
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
ledhal commands:
  families                      - list backend families
  list                          - list hardware and their state
  get <hw> <kind>               - read id | ledcount | gain | custom-prop
  set <hw> <kind> <value>       - write an object (gain takes pos:value)
  prop <hw>                     - print the backend property
  apply <hw> <prop> k=v ...     - apply a property, all fields at once
  fill <hw> <byte>              - set every chain byte (hex or decimal)
  pixel <hw> <i> <byte> ...     - set the bytes of one LED
  send <hw> [count] [offset]    - transfer LEDs (default: whole chain)
  show <hw>                     - latch the transferred LEDs
  pattern <hw> <kind> [ms]      - play a test pattern
  snapshot <hw> <file>          - save the property as CBOR
  restore <hw> <file>           - apply a saved property
  down <hw>                     - deinitialize a hardware
  quit                          - exit`)
}

type usage string

func (u usage) Error() string { return "usage: " + string(u) }

func (s *Shell) withStrip(args []string, n int, fn func(*host.Strip) error) error {
	if len(args) < n {
		return usage("<hw> ...")
	}
	st, err := s.host.Strip(args[0])
	if err != nil {
		return err
	}
	return fn(st)
}

func (s *Shell) cmdFamilies() {
	l := s.host.Loader()
	for _, f := range l.Families() {
		b, _ := l.Lookup(f)
		d := b.Descriptor()
		fmt.Fprintf(s.out, "  %-8s %-7s %-4s %s (id: %s)\n", d.Family, d.Version, d.License, d.Description, d.IDExample)
	}
}

func (s *Shell) cmdList() {
	for _, n := range s.host.Names() {
		st, err := s.host.Strip(n)
		if err != nil {
			continue
		}
		id := ""
		if inst := st.HW.Instance(); inst != nil {
			id = inst.ID().String()
		}
		fmt.Fprintf(s.out, "  %-12s %-8s %-15s %5d LEDs  %s  id=%s\n",
			n, st.Config.Family, st.HW.State(), st.Chain.LEDCount(), st.Chain.Format(), id)
	}
}

func (s *Shell) cmdGet(args []string) error {
	if len(args) != 2 {
		return usage("get <hw> <kind>")
	}
	kind, err := hal.ParseObjectKind(args[1])
	if err != nil {
		return err
	}
	return s.withStrip(args, 1, func(st *host.Strip) error {
		v, err := st.HW.Get(kind)
		if err != nil {
			return err
		}
		switch kind {
		case hal.KindID:
			fmt.Fprintf(s.out, "%q\n", v.ID)
		case hal.KindLEDCount:
			fmt.Fprintln(s.out, v.LEDCount)
		case hal.KindGain:
			fmt.Fprintf(s.out, "%d:%d\n", v.Gain.Pos, v.Gain.Value)
		case hal.KindCustomProp:
			return printYAML(s.out, v.Custom)
		}
		return nil
	})
}

func (s *Shell) cmdSet(args []string) error {
	if len(args) < 2 {
		return usage("set <hw> <kind> <value>")
	}
	kind, err := hal.ParseObjectKind(args[1])
	if err != nil {
		return err
	}
	raw := strings.Join(args[2:], " ")
	var v hal.Value
	switch kind {
	case hal.KindID:
		v.ID = raw
	case hal.KindLEDCount:
		if v.LEDCount, err = strconv.Atoi(raw); err != nil {
			return err
		}
	case hal.KindGain:
		pos, val, ok := strings.Cut(raw, ":")
		if !ok {
			return usage("set <hw> gain <pos>:<value>")
		}
		if v.Gain.Pos, err = strconv.Atoi(pos); err != nil {
			return err
		}
		if v.Gain.Value, err = strconv.Atoi(val); err != nil {
			return err
		}
	}
	return s.withStrip(args, 1, func(st *host.Strip) error { return st.HW.Set(kind, v) })
}

func printYAML(w io.Writer, n *settings.Node) error {
	if n == nil {
		fmt.Fprintln(w, "~")
		return nil
	}
	b, err := yaml.Marshal(n)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func (s *Shell) cmdProp(args []string) error {
	return s.withStrip(args, 1, func(st *host.Strip) error {
		n, err := st.HW.Property()
		if err != nil {
			return err
		}
		return printYAML(s.out, n)
	})
}

func (s *Shell) cmdApply(args []string) error {
	if len(args) < 3 {
		return usage("apply <hw> <prop> key=value ...")
	}
	n, err := settings.NewNode(args[1])
	if err != nil {
		return err
	}
	for _, kv := range args[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return usage("apply <hw> <prop> key=value ...")
		}
		if i, aerr := strconv.Atoi(v); aerr == nil {
			err = n.SetInt(k, i)
		} else {
			err = n.SetString(k, v)
		}
		if err != nil {
			return err
		}
	}
	return s.withStrip(args, 1, func(st *host.Strip) error { return st.HW.ApplyProperty(n) })
}

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}

func (s *Shell) cmdFill(args []string) error {
	if len(args) != 2 {
		return usage("fill <hw> <byte>")
	}
	b, err := parseByte(args[1])
	if err != nil {
		return err
	}
	return s.withStrip(args, 1, func(st *host.Strip) error {
		st.Chain.Fill(b)
		return nil
	})
}

func (s *Shell) cmdPixel(args []string) error {
	if len(args) < 3 {
		return usage("pixel <hw> <i> <byte> ...")
	}
	i, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	px := make([]byte, 0, len(args)-2)
	for _, a := range args[2:] {
		b, err := parseByte(a)
		if err != nil {
			return err
		}
		px = append(px, b)
	}
	return s.withStrip(args, 1, func(st *host.Strip) error { return st.Chain.SetPixel(i, px) })
}

func (s *Shell) cmdSend(args []string) error {
	return s.withStrip(args, 1, func(st *host.Strip) error {
		count, offset := st.Chain.LEDCount(), 0
		var err error
		if len(args) > 1 {
			if count, err = strconv.Atoi(args[1]); err != nil {
				return err
			}
		}
		if len(args) > 2 {
			if offset, err = strconv.Atoi(args[2]); err != nil {
				return err
			}
		}
		return st.HW.Send(count, offset)
	})
}

func (s *Shell) cmdPattern(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usage("pattern <hw> <kind> [ms]")
	}
	kind, err := pattern.ParseKind(args[1])
	if err != nil {
		return err
	}
	interval := 200 * time.Millisecond
	if len(args) > 2 {
		ms, err := strconv.Atoi(args[2])
		if err != nil {
			return err
		}
		interval = time.Duration(ms) * time.Millisecond
	}
	n, err := s.host.RunPattern(ctx, args[0], kind, interval)
	fmt.Fprintf(s.out, "%d frames\n", n)
	return err
}

func (s *Shell) cmdSnapshot(args []string) error {
	if len(args) != 2 {
		return usage("snapshot <hw> <file>")
	}
	b, err := s.host.Snapshot(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d bytes: %s\n", len(b), hex.EncodeToString(b))
	return os.WriteFile(args[1], b, 0644)
}

func (s *Shell) cmdRestore(args []string) error {
	if len(args) != 2 {
		return usage("restore <hw> <file>")
	}
	b, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	return s.host.Restore(args[0], b)
}
