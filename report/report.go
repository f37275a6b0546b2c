/*
Package report computes performance measures of a classifier from the
confusion matrix of its predictions on test data.
*/
package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"github.com/pbanos/canopy"
)

// Class holds the performance measures of a classifier on one label.
// Measures that are undefined for the matrix are NaN.
type Class struct {
	Label       int
	Sensitivity float64
	Specificity float64
	Precision   float64
	Recall      float64
	F1          float64
	F05         float64
	F2          float64
}

/*
Report holds the overall accuracy of a classifier, the measures for each
label and their macro averages. A macro average is the mean of the
defined values of a measure, or NaN when no label defines it.
*/
type Report struct {
	Accuracy float64
	Classes  []Class
	Macro    Class
}

/*
New takes a confusion matrix and returns the report of the
predictions counted on it.
*/
func New(m canopy.ConfusionMatrix) *Report {
	r := &Report{
		Accuracy: ratio(m.Correct(), m.Total()),
		Classes:  make([]Class, m.Labels()),
	}
	total := m.Total()
	for i := range m {
		tp := m[i][i]
		var p, pp int
		for j := range m {
			p += m[i][j]
			pp += m[j][i]
		}
		fn := p - tp
		fp := pp - tp
		tn := total - tp - fn - fp
		c := Class{
			Label:       i + 1,
			Sensitivity: ratio(tp, p),
			Specificity: ratio(tn, tn+fp),
			Precision:   ratio(tp, pp),
		}
		c.Recall = c.Sensitivity
		c.F1 = fScore(1, c.Precision, c.Recall)
		c.F05 = fScore(0.5, c.Precision, c.Recall)
		c.F2 = fScore(2, c.Precision, c.Recall)
		r.Classes[i] = c
	}
	r.Macro = Class{
		Sensitivity: r.macro(func(c Class) float64 { return c.Sensitivity }),
		Specificity: r.macro(func(c Class) float64 { return c.Specificity }),
		Precision:   r.macro(func(c Class) float64 { return c.Precision }),
		Recall:      r.macro(func(c Class) float64 { return c.Recall }),
		F1:          r.macro(func(c Class) float64 { return c.F1 }),
		F05:         r.macro(func(c Class) float64 { return c.F05 }),
		F2:          r.macro(func(c Class) float64 { return c.F2 }),
	}
	return r
}

/*
Render writes the report on the given writer: the overall accuracy
followed by a table with a row per measure and a column per label,
plus the macro averages.
*/
func (r *Report) Render(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Overall accuracy: %s\n", format(r.Accuracy))
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	header := []string{"Class"}
	for _, c := range r.Classes {
		header = append(header, strconv.Itoa(c.Label))
	}
	header = append(header, "Macro")
	table.SetHeader(header)
	rows := []struct {
		name    string
		measure func(Class) float64
	}{
		{"Sensitivity", func(c Class) float64 { return c.Sensitivity }},
		{"Specificity", func(c Class) float64 { return c.Specificity }},
		{"Precision", func(c Class) float64 { return c.Precision }},
		{"Recall", func(c Class) float64 { return c.Recall }},
		{"F-1 Score", func(c Class) float64 { return c.F1 }},
		{"F-0.5 Score", func(c Class) float64 { return c.F05 }},
		{"F-2 Score", func(c Class) float64 { return c.F2 }},
	}
	for _, row := range rows {
		record := []string{row.name}
		for _, c := range r.Classes {
			record = append(record, format(row.measure(c)))
		}
		record = append(record, format(row.measure(r.Macro)))
		table.Append(record)
	}
	table.Render()
	return nil
}

func (r *Report) String() string {
	var buf bytes.Buffer
	r.Render(&buf)
	return buf.String()
}

func (r *Report) macro(measure func(Class) float64) float64 {
	var defined []float64
	for _, c := range r.Classes {
		if v := measure(c); !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	mean, err := stats.Mean(defined)
	if err != nil {
		return math.NaN()
	}
	return mean
}

func ratio(a, b int) float64 {
	if b == 0 {
		return math.NaN()
	}
	return float64(a) / float64(b)
}

// fScore returns the F-beta score of the given precision and recall.
func fScore(beta, precision, recall float64) float64 {
	b2 := beta * beta
	d := b2*precision + recall
	if d == 0 || math.IsNaN(d) {
		return math.NaN()
	}
	return (1 + b2) * precision * recall / d
}

func format(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
