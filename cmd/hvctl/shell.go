package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/caen-go/caenlibs/pkg/caenhv"
	"github.com/caen-go/caenlibs/pkg/memo"
)

const (
	promptOpen   = "hv> "
	promptClosed = "hv(closed)> "
)

// nameScope keys one cached name enumeration. The owner side of the cache
// is the native handle, so entries from a previous connection can never
// serve a new one.
type nameScope struct {
	kind    scopeKind
	slot    uint16
	channel uint16
}

type scopeKind uint8

const (
	scopeSysProps scopeKind = iota
	scopeExecComms
	scopeBdParams
	scopeChParams
)

// shell is the interactive command loop. Parameter and property name
// enumerations are memoized per handle so tab completion does not hit the
// crate on every keystroke; the cache group is flushed on reconnect.
type shell struct {
	dev *caenhv.Device
	rl  *readline.Instance

	caches memo.Group
	names  *memo.Cache[int32, nameScope, []string]
}

func newShell(dev *caenhv.Device, historyFile string) (*shell, error) {
	sh := &shell{dev: dev}
	sh.names = memo.New[int32, nameScope, []string](&sh.caches)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptOpen,
		HistoryFile:     historyFile,
		AutoComplete:    &completer{sh: sh},
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return nil, fmt.Errorf("readline: %w", err)
	}
	sh.rl = rl
	return sh, nil
}

func (sh *shell) printf(format string, a ...any) {
	fmt.Fprintf(sh.rl.Stdout(), format, a...)
}

// Run reads and executes commands until quit or EOF.
func (sh *shell) Run() error {
	defer sh.rl.Close()

	sh.printf("connected to %s via %s %s, handle %d\n",
		sh.dev.SystemType(), sh.dev.LinkType(), sh.dev.Arg(), sh.dev.Handle())
	sh.printf("help for commands, quit to exit\n")

	for {
		line, err := sh.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil { // io.EOF
			return nil
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		words := strings.Fields(input)
		cmd, args := strings.ToLower(words[0]), words[1:]

		switch cmd {
		case "help", "?":
			sh.printHelp()
		case "map":
			sh.cmdMap()
		case "board":
			sh.cmdBoard(args)
		case "commands":
			sh.cmdCommands()
		case "exec":
			sh.cmdExec(args)
		case "props":
			sh.cmdProps()
		case "prop":
			sh.cmdProp(args)
		case "get":
			sh.cmdGet(args)
		case "set":
			sh.cmdSet(args)
		case "bdparams":
			sh.cmdBdParams(args)
		case "bdprop":
			sh.cmdBdProp(args)
		case "bdget":
			sh.cmdBdGet(args)
		case "bdset":
			sh.cmdBdSet(args)
		case "chparams":
			sh.cmdChParams(args)
		case "chprop":
			sh.cmdChProp(args)
		case "chget":
			sh.cmdChGet(args)
		case "chset":
			sh.cmdChSet(args)
		case "names":
			sh.cmdNames(args)
		case "rename":
			sh.cmdRename(args)
		case "sub":
			sh.cmdSubscribe(args, false)
		case "unsub":
			sh.cmdSubscribe(args, true)
		case "events":
			sh.cmdEvents(args)
		case "status":
			sh.cmdStatus()
		case "release":
			sh.cmdRelease()
		case "lasterr":
			sh.cmdLastError()
		case "close":
			sh.cmdClose()
		case "connect":
			sh.cmdConnect()
		case "quit", "exit", "q":
			return nil
		default:
			sh.printf("unknown command %q, try help\n", cmd)
		}
	}
}

func (sh *shell) printHelp() {
	sh.printf(`Crate:
  map                            show the crate map
  board <slot>                   probe one slot
  commands                       list system commands
  exec <name>                    run a system command

System properties:
  props                          list properties with type and access
  prop <name>                    show one property's type and access
  get <name>                     read a property value
  set <name> <value>             write a property value

Board parameters:
  bdparams <slot>                list parameter names
  bdprop <slot> <name>           show parameter properties
  bdget <slots> <name>           read from one or more slots
  bdset <slots> <name> <value>   write to one or more slots

Channel parameters:
  chparams <slot> <ch>           list parameter names
  chprop <slot> <ch> <name>      show parameter properties
  chget <slot> <chs> <name>      read from one or more channels
  chset <slot> <chs> <name> <value>  write to one or more channels
  names <slot> <chs>             show channel names
  rename <slot> <chs> <name>     assign a channel name

Events:
  sub sys <params...>            subscribe system properties
  sub bd <slot> <params...>      subscribe board parameters
  sub ch <slot> <ch> <params...> subscribe channel parameters
  unsub sys|bd|ch ...            drop a subscription
  events [n]                     wait for and print n events

Session:
  status                         connection summary
  release                        native library release
  lasterr                        last native error message
  close                          release the native handle
  connect                        reopen after close
  quit                           exit

Index lists accept commas and ranges: 0,2,4-7
Values parse as integer, then float, then true/false, then string.
`)
}

// need checks the argument count and prints the usage line when short.
func (sh *shell) need(args []string, n int, usage string) bool {
	if len(args) < n {
		sh.printf("usage: %s\n", usage)
		return false
	}
	return true
}

func (sh *shell) cmdMap() {
	boards, err := sh.dev.GetCrateMap()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	for slot, b := range boards {
		sh.printf("%s\n", formatBoard(uint16(slot), b))
	}
}

func (sh *shell) cmdBoard(args []string) {
	if !sh.need(args, 1, "board <slot>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	b, err := sh.dev.TestBdPresence(slot)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("%s\n", formatBoard(slot, b))
}

func (sh *shell) cmdCommands() {
	comms, err := sh.dev.GetExecCommList()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.names.Put(sh.dev.Handle(), nameScope{kind: scopeExecComms}, comms)
	for _, c := range comms {
		sh.printf("%s\n", c)
	}
}

func (sh *shell) cmdExec(args []string) {
	if !sh.need(args, 1, "exec <name>") {
		return
	}
	if err := sh.dev.ExecComm(args[0]); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

func (sh *shell) cmdProps() {
	names, err := sh.dev.GetSysPropList()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.names.Put(sh.dev.Handle(), nameScope{kind: scopeSysProps}, names)
	for _, name := range names {
		prop, err := sh.dev.GetSysPropInfo(name)
		if err != nil {
			sh.printf("%-24s (info unavailable: %v)\n", name, err)
			continue
		}
		sh.printf("%-24s %-8s %s\n", prop.Name, prop.Type, prop.Mode)
	}
}

func (sh *shell) cmdProp(args []string) {
	if !sh.need(args, 1, "prop <name>") {
		return
	}
	prop, err := sh.dev.GetSysPropInfo(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("%-24s %-8s %s\n", prop.Name, prop.Type, prop.Mode)
}

func (sh *shell) cmdGet(args []string) {
	if !sh.need(args, 1, "get <name>") {
		return
	}
	v, err := sh.dev.GetSysProp(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("%s = %s\n", args[0], v)
}

func (sh *shell) cmdSet(args []string) {
	if !sh.need(args, 2, "set <name> <value>") {
		return
	}
	if err := sh.dev.SetSysProp(args[0], parseValue(args[1])); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

func (sh *shell) cmdBdParams(args []string) {
	if !sh.need(args, 1, "bdparams <slot>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	names, err := sh.dev.GetBdParamInfo(slot)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.names.Put(sh.dev.Handle(), nameScope{kind: scopeBdParams, slot: slot}, names)
	for _, name := range names {
		sh.printf("%s\n", name)
	}
}

func (sh *shell) cmdBdProp(args []string) {
	if !sh.need(args, 2, "bdprop <slot> <name>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	prop, err := sh.dev.GetBdParamProp(slot, args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printParamProp(prop)
}

func (sh *shell) cmdBdGet(args []string) {
	if !sh.need(args, 2, "bdget <slots> <name>") {
		return
	}
	slots, err := parseIndexList(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	values, err := sh.dev.GetBdParam(slots, args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	for i, v := range values {
		sh.printf("slot %d: %s\n", slots[i], v)
	}
}

func (sh *shell) cmdBdSet(args []string) {
	if !sh.need(args, 3, "bdset <slots> <name> <value>") {
		return
	}
	slots, err := parseIndexList(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	if err := sh.dev.SetBdParam(slots, args[1], parseValue(args[2])); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

func (sh *shell) cmdChParams(args []string) {
	if !sh.need(args, 2, "chparams <slot> <ch>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	ch, err := parseUint16(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	names, err := sh.dev.GetChParamInfo(slot, ch)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.names.Put(sh.dev.Handle(), nameScope{kind: scopeChParams, slot: slot, channel: ch}, names)
	for _, name := range names {
		sh.printf("%s\n", name)
	}
}

func (sh *shell) cmdChProp(args []string) {
	if !sh.need(args, 3, "chprop <slot> <ch> <name>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	ch, err := parseUint16(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	prop, err := sh.dev.GetChParamProp(slot, ch, args[2])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printParamProp(prop)
}

func (sh *shell) cmdChGet(args []string) {
	if !sh.need(args, 3, "chget <slot> <chs> <name>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	chs, err := parseIndexList(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	values, err := sh.dev.GetChParam(slot, chs, args[2])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	for i, v := range values {
		sh.printf("ch %d: %s\n", chs[i], v)
	}
}

func (sh *shell) cmdChSet(args []string) {
	if !sh.need(args, 4, "chset <slot> <chs> <name> <value>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	chs, err := parseIndexList(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	if err := sh.dev.SetChParam(slot, chs, args[2], parseValue(args[3])); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

func (sh *shell) cmdNames(args []string) {
	if !sh.need(args, 2, "names <slot> <chs>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	chs, err := parseIndexList(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	names, err := sh.dev.GetChName(slot, chs)
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	for i, name := range names {
		sh.printf("ch %d: %s\n", chs[i], name)
	}
}

func (sh *shell) cmdRename(args []string) {
	if !sh.need(args, 3, "rename <slot> <chs> <name>") {
		return
	}
	slot, err := parseUint16(args[0])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	chs, err := parseIndexList(args[1])
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	if err := sh.dev.SetChName(slot, chs, args[2]); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

const subUsage = "sub|unsub sys <params...> | bd <slot> <params...> | ch <slot> <ch> <params...>"

func (sh *shell) cmdSubscribe(args []string, unsubscribe bool) {
	if !sh.need(args, 2, subUsage) {
		return
	}
	var err error
	switch args[0] {
	case "sys":
		if unsubscribe {
			err = sh.dev.UnSubscribeSystemParams(args[1:])
		} else {
			err = sh.dev.SubscribeSystemParams(args[1:])
		}
	case "bd":
		if !sh.need(args, 3, subUsage) {
			return
		}
		var slot uint16
		if slot, err = parseUint16(args[1]); err != nil {
			break
		}
		if unsubscribe {
			err = sh.dev.UnSubscribeBoardParams(slot, args[2:])
		} else {
			err = sh.dev.SubscribeBoardParams(slot, args[2:])
		}
	case "ch":
		if !sh.need(args, 4, subUsage) {
			return
		}
		var slot, ch uint16
		if slot, err = parseUint16(args[1]); err != nil {
			break
		}
		if ch, err = parseUint16(args[2]); err != nil {
			break
		}
		if unsubscribe {
			err = sh.dev.UnSubscribeChannelParams(slot, ch, args[3:])
		} else {
			err = sh.dev.SubscribeChannelParams(slot, ch, args[3:])
		}
	default:
		sh.printf("usage: %s\n", subUsage)
		return
	}
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("ok\n")
}

func (sh *shell) cmdEvents(args []string) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			sh.printf("usage: events [n]\n")
			return
		}
		n = v
	}
	for i := 0; i < n; i++ {
		ev, st, err := sh.dev.GetEventData()
		if err != nil {
			sh.printf("error: %v\n", err)
			return
		}
		sh.printf("%s\n", formatEvent(ev, st))
	}
}

func (sh *shell) cmdStatus() {
	sh.printf("system %s via %s %s\n", sh.dev.SystemType(), sh.dev.LinkType(), sh.dev.Arg())
	if sh.dev.Opened() {
		sh.printf("connected, handle %d\n", sh.dev.Handle())
	} else {
		sh.printf("closed\n")
	}
}

func (sh *shell) cmdRelease() {
	release, err := caenhv.SoftwareRelease()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("CAEN HV Wrapper %s\n", release)
}

func (sh *shell) cmdLastError() {
	msg, err := sh.dev.LastError()
	if err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.printf("%s\n", msg)
}

func (sh *shell) cmdClose() {
	if err := sh.dev.Close(); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	sh.rl.SetPrompt(promptClosed)
	sh.printf("closed\n")
}

func (sh *shell) cmdConnect() {
	if err := sh.dev.Connect(); err != nil {
		sh.printf("error: %v\n", err)
		return
	}
	// The native handle changed, every cached enumeration is stale.
	sh.caches.InvalidateAll()
	sh.rl.SetPrompt(promptOpen)
	sh.printf("reconnected, handle %d\n", sh.dev.Handle())
}

func (sh *shell) printParamProp(p caenhv.ParamProp) {
	sh.printf("%s: type %s, mode %s\n", p.Name, p.Type, p.Mode)
	if p.Minval != nil && p.Maxval != nil {
		sh.printf("  range %g..%g\n", *p.Minval, *p.Maxval)
	}
	if p.Unit != nil {
		if p.Exp != nil {
			sh.printf("  unit %s, exp %d\n", *p.Unit, *p.Exp)
		} else {
			sh.printf("  unit %s\n", *p.Unit)
		}
	}
	if p.Onstate != nil && p.Offstate != nil {
		sh.printf("  states %s / %s\n", *p.Onstate, *p.Offstate)
	}
	if len(p.Enum) > 0 {
		sh.printf("  values %s\n", strings.Join(p.Enum, ", "))
	}
}

func formatBoard(slot uint16, b caenhv.Board) string {
	if b.Model == "" {
		return fmt.Sprintf("slot %2d: empty", slot)
	}
	return fmt.Sprintf("slot %2d: %-12s %3d ch  sn %-6d fw %-6s %s",
		slot, b.Model, b.NrOfChannels, b.SerialNumber, b.FwVersion, b.Description)
}

func formatEvent(ev caenhv.EventData, st caenhv.SystemStatus) string {
	switch ev.Type {
	case caenhv.EventTypeKeepalive:
		return fmt.Sprintf("%-9s system status %d", ev.Type, st.System)
	case caenhv.EventTypeAlarm:
		return fmt.Sprintf("%-9s %s", ev.Type, ev.ItemID)
	}
	loc := "system"
	if ev.BoardIndex >= 0 {
		loc = fmt.Sprintf("slot %d", ev.BoardIndex)
		if ev.ChannelIndex >= 0 {
			loc = fmt.Sprintf("%s ch %d", loc, ev.ChannelIndex)
		}
	}
	return fmt.Sprintf("%-9s %s %s = %s", ev.Type, loc, ev.ItemID, ev.Value)
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	return uint16(v), nil
}

// parseIndexList expands a slot or channel list like "0,2,4-7" in the
// order given. Duplicates are passed through, the native library accepts
// them.
func parseIndexList(s string) ([]uint16, error) {
	var out []uint16
	for _, part := range strings.Split(s, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			v, err := parseUint16(part)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
			continue
		}
		first, err := parseUint16(lo)
		if err != nil {
			return nil, err
		}
		last, err := parseUint16(hi)
		if err != nil {
			return nil, err
		}
		if first > last {
			return nil, fmt.Errorf("bad range %q", part)
		}
		for i := int(first); i <= int(last); i++ {
			out = append(out, uint16(i))
		}
	}
	return out, nil
}

// parseValue maps shell input to the tightest value kind: integer first,
// then float, then bool, then string. Integers satisfy both numeric and
// integer-backed parameters, so "1000" works for either.
func parseValue(s string) caenhv.Value {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return caenhv.IntValue(v)
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return caenhv.FloatValue(v)
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return caenhv.BoolValue(v)
	}
	return caenhv.StringValue(s)
}
