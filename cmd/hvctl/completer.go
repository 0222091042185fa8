package main

import "strings"

var shellCommands = []string{
	"map", "board", "commands", "exec",
	"props", "prop", "get", "set",
	"bdparams", "bdprop", "bdget", "bdset",
	"chparams", "chprop", "chget", "chset", "names", "rename",
	"sub", "unsub", "events",
	"status", "release", "lasterr", "close", "connect",
	"help", "quit", "exit",
}

// completer implements readline.AutoCompleter over the shell's memoized
// name enumerations. Lookups that need the crate go through the memo
// cache, so only the first completion of a scope costs a round trip.
type completer struct {
	sh *shell
}

func (c *completer) Do(line []rune, pos int) ([][]rune, int) {
	prefix := string(line[:pos])
	words := strings.Fields(prefix)

	last := ""
	argIndex := len(words)
	if len(words) > 0 && !strings.HasSuffix(prefix, " ") {
		last = words[len(words)-1]
		argIndex = len(words) - 1
	}

	var candidates []string
	if argIndex == 0 {
		candidates = shellCommands
	} else {
		candidates = c.argCandidates(strings.ToLower(words[0]), argIndex, words)
	}

	var out [][]rune
	for _, cand := range candidates {
		if strings.HasPrefix(cand, last) {
			out = append(out, []rune(cand[len(last):]+" "))
		}
	}
	return out, len(last)
}

func (c *completer) argCandidates(cmd string, argIndex int, words []string) []string {
	switch cmd {
	case "prop", "get", "set":
		if argIndex == 1 {
			return c.sysPropNames()
		}
	case "exec":
		if argIndex == 1 {
			return c.execCommNames()
		}
	case "bdprop", "bdget", "bdset":
		if argIndex == 2 {
			return c.bdParamNames(words[1])
		}
	case "chprop", "chget", "chset":
		if argIndex == 3 {
			return c.chParamNames(words[1], words[2])
		}
	case "sub", "unsub":
		if argIndex == 1 {
			return []string{"sys", "bd", "ch"}
		}
		if len(words) < 2 {
			return nil
		}
		switch words[1] {
		case "sys":
			return c.sysPropNames()
		case "bd":
			if argIndex >= 3 {
				return c.bdParamNames(words[2])
			}
		case "ch":
			if argIndex >= 4 {
				return c.chParamNames(words[2], words[3])
			}
		}
	}
	return nil
}

func (c *completer) sysPropNames() []string {
	names, err := c.sh.names.GetOrCompute(c.sh.dev.Handle(),
		nameScope{kind: scopeSysProps}, c.sh.dev.GetSysPropList)
	if err != nil {
		return nil
	}
	return names
}

func (c *completer) execCommNames() []string {
	names, err := c.sh.names.GetOrCompute(c.sh.dev.Handle(),
		nameScope{kind: scopeExecComms}, c.sh.dev.GetExecCommList)
	if err != nil {
		return nil
	}
	return names
}

// bdParamNames completes against the first slot of an index list: batches
// must not mix parameter sets anyway.
func (c *completer) bdParamNames(slotArg string) []string {
	slots, err := parseIndexList(slotArg)
	if err != nil {
		return nil
	}
	slot := slots[0]
	names, err := c.sh.names.GetOrCompute(c.sh.dev.Handle(),
		nameScope{kind: scopeBdParams, slot: slot}, func() ([]string, error) {
			return c.sh.dev.GetBdParamInfo(slot)
		})
	if err != nil {
		return nil
	}
	return names
}

func (c *completer) chParamNames(slotArg, chArg string) []string {
	slot, err := parseUint16(slotArg)
	if err != nil {
		return nil
	}
	chs, err := parseIndexList(chArg)
	if err != nil {
		return nil
	}
	ch := chs[0]
	names, err := c.sh.names.GetOrCompute(c.sh.dev.Handle(),
		nameScope{kind: scopeChParams, slot: slot, channel: ch}, func() ([]string, error) {
			return c.sh.dev.GetChParamInfo(slot, ch)
		})
	if err != nil {
		return nil
	}
	return names
}
