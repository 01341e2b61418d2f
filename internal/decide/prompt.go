package decide

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/bianoble/pinit/internal/engine"
)

func (c *CLI) prompt(dc engine.DecisionContext) engine.Action {
	mergeAvailable := dc.MergeAvailable()
	for {
		fmt.Fprintln(c.out)
		fmt.Fprintf(c.out, "%s %s\n", c.paint(color.New(color.Bold, color.FgYellow), "file exists:"), dc.RelPath)
		fmt.Fprintf(c.out, "merge available: %s\n", yesNo(mergeAvailable))
		fmt.Fprintln(c.out, "choose: (m)erge, (o)verwrite, (s)kip, (d)iff  [default: m]")
		fmt.Fprintln(c.out, "        (O)verwrite all, (S)kip all remaining conflicts")
		fmt.Fprint(c.out, "> ")

		line, err := c.in.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(c.out)
			return engine.Skip
		}
		choice := strings.TrimSpace(line)

		switch choice {
		case "O":
			c.remember(engine.Overwrite)
			return engine.Overwrite
		case "S":
			c.remember(engine.Skip)
			return engine.Skip
		}
		switch strings.ToLower(choice) {
		case "", "m":
			if mergeAvailable {
				return engine.Merge
			}
			fmt.Fprintln(c.out, "merge is unavailable for this file; choose overwrite or skip.")
		case "o":
			return engine.Overwrite
		case "s":
			return engine.Skip
		case "d":
			c.printDiffs(dc)
		default:
			fmt.Fprintf(c.out, "unknown choice: %s\n", choice)
		}
	}
}

func (c *CLI) remember(a engine.Action) {
	c.sticky = &a
}

func (c *CLI) printDiffs(dc engine.DecisionContext) {
	fmt.Fprintf(c.out, "\ndiffs for %s:\n\n", dc.RelPath)
	if dc.MergeAvailable() {
		fmt.Fprintln(c.out, c.paint(color.New(color.Bold), "--- merge"))
		writeDiff(c.out, "dest", "merged", dc.Dest, dc.Merged, c.color)
	} else {
		fmt.Fprintln(c.out, c.paint(color.New(color.Bold), "--- merge (unavailable)"))
	}
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.paint(color.New(color.Bold), "--- overwrite"))
	writeDiff(c.out, "dest", "template", dc.Dest, dc.Src, c.color)
	fmt.Fprintln(c.out)
}

func (c *CLI) paint(attr *color.Color, s string) string {
	if !c.color {
		return s
	}
	attr.EnableColor()
	return attr.Sprint(s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
