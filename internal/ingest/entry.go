package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/calvinalkan/salesdash/internal/sales"
)

// Prompter reads one line of input after showing prompt.
// *liner.State satisfies it.
type Prompter interface {
	Prompt(prompt string) (string, error)
}

// EntryLabels are the prompt labels for each numeric field.
var EntryLabels = map[string]string{
	FieldSales:      "Sales",
	FieldTxns:       "Txns",
	FieldUnits:      "Units",
	FieldHourTarget: "Hour Target",
	FieldLastYear:   "LY",
	FieldTraffic:    "Traffic",
	FieldDayTarget:  "TTD Target",
}

// EntryGrid collects values for each time slot and numeric field.
type EntryGrid struct {
	Prompter Prompter
	// Out receives re-prompt messages; nil discards them.
	Out io.Writer
	// Times are the slot labels, usually from the store hours.
	Times []string
	// Fields limits which fields are asked for. Empty means all.
	Fields []string
	// EnteredBy is recorded in the dataset meta when set.
	EnteredBy string
}

// Run prompts for every cell. A blank answer leaves the cell absent, "q"
// aborts with ErrAborted, and an end of input stops with what was entered
// so far.
func (g EntryGrid) Run() (sales.Dataset, error) {
	out := g.Out
	if out == nil {
		out = io.Discard
	}

	fields := g.Fields
	if len(fields) == 0 {
		for _, f := range numericFields {
			fields = append(fields, f.name)
		}
	}

	setters := map[string]func(*sales.HourlyRecord, sales.Num){}
	for _, f := range numericFields {
		setters[f.name] = f.set
	}

	for _, f := range fields {
		if setters[f] == nil {
			return sales.Dataset{}, fmt.Errorf("%w: unknown field %q", ErrIngest, f)
		}
	}

	ds := sales.Dataset{WTD: map[string]any{}, Meta: map[string]any{"source": "manual"}}
	if g.EnteredBy != "" {
		ds.Meta["enteredBy"] = g.EnteredBy
	}

	for _, t := range g.Times {
		rec := sales.HourlyRecord{Time: t}

		for _, f := range fields {
			n, err := g.ask(out, t, f)
			if errors.Is(err, io.EOF) {
				ds.Hourly = append(ds.Hourly, rec)

				return ds, nil
			}

			if err != nil {
				return sales.Dataset{}, err
			}

			setters[f](&rec, n)
		}

		ds.Hourly = append(ds.Hourly, rec)
	}

	return ds, nil
}

func (g EntryGrid) ask(out io.Writer, slot, field string) (sales.Num, error) {
	prompt := fmt.Sprintf("%s %s: ", slot, EntryLabels[field])

	for {
		line, err := g.Prompter.Prompt(prompt)
		if err != nil {
			return sales.Num{}, err
		}

		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "q") {
			return sales.Num{}, ErrAborted
		}

		n, err := sales.ParseNum(line)
		if err == nil {
			return n, nil
		}

		fmt.Fprintf(out, "not a number: %q (blank to skip, q to quit)\n", line)
	}
}
