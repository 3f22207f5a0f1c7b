package graph

import (
	"encoding/json"
	"strings"

	"github.com/abdulachik/socialgate/internal/social"
)

// Insights is the body of an /insights call.
type Insights struct {
	Data []Insight `json:"data"`
}

type Insight struct {
	Name       string         `json:"name"`
	Period     string         `json:"period"`
	Values     []InsightValue `json:"values"`
	TotalValue *TotalValue    `json:"total_value"`
}

type InsightValue struct {
	Value   json.RawMessage `json:"value"`
	EndTime string          `json:"end_time"`
}

type TotalValue struct {
	Value      json.RawMessage `json:"value"`
	Breakdowns []Breakdown     `json:"breakdowns"`
}

type Breakdown struct {
	DimensionKeys []string `json:"dimension_keys"`
	Results       []struct {
		DimensionValues []string `json:"dimension_values"`
		Value           float64  `json:"value"`
	} `json:"results"`
}

// Find returns the named metric or nil.
func (in Insights) Find(name string) *Insight {
	for i := range in.Data {
		if in.Data[i].Name == name {
			return &in.Data[i]
		}
	}
	return nil
}

// Sum adds every numeric value of the named metric, preferring total_value.
func (in Insights) Sum(name string) int64 {
	m := in.Find(name)
	if m == nil {
		return 0
	}
	if m.TotalValue != nil {
		return int64(number(m.TotalValue.Value))
	}
	var total float64
	for _, v := range m.Values {
		total += number(v.Value)
	}
	return int64(total)
}

// Latest returns the most recent numeric value of the named metric.
func (in Insights) Latest(name string) int64 {
	m := in.Find(name)
	if m == nil {
		return 0
	}
	if m.TotalValue != nil {
		return int64(number(m.TotalValue.Value))
	}
	if len(m.Values) == 0 {
		return 0
	}
	return int64(number(m.Values[len(m.Values)-1].Value))
}

// LatestBreakdown returns the most recent object-valued sample, such as
// page_fans_country.
func (in Insights) LatestBreakdown(name string) map[string]float64 {
	m := in.Find(name)
	if m == nil || len(m.Values) == 0 {
		return nil
	}
	var out map[string]float64
	if err := json.Unmarshal(m.Values[len(m.Values)-1].Value, &out); err != nil {
		return nil
	}
	return out
}

// Points converts the values of the first metric into a time series.
func (in Insights) Points(metric string) []social.DataPoint {
	m := in.Find(metric)
	if m == nil && len(in.Data) > 0 {
		m = &in.Data[0]
	}
	if m == nil {
		return nil
	}
	points := make([]social.DataPoint, 0, len(m.Values))
	for _, v := range m.Values {
		points = append(points, social.DataPoint{
			Metric: metric,
			Time:   ParseTime(v.EndTime),
			Value:  number(v.Value),
		})
	}
	return points
}

// BreakdownResults flattens the first total_value breakdown of a metric.
func (in Insights) BreakdownResults(name string) map[string]float64 {
	m := in.Find(name)
	if m == nil || m.TotalValue == nil || len(m.TotalValue.Breakdowns) == 0 {
		return nil
	}
	out := make(map[string]float64)
	for _, r := range m.TotalValue.Breakdowns[0].Results {
		out[strings.Join(r.DimensionValues, ".")] += r.Value
	}
	return out
}

// SplitGenderAge turns page_fans_gender_age keys like "F.25-34" into
// separate gender and age totals.
func SplitGenderAge(values map[string]float64) (gender, age map[string]float64) {
	if len(values) == 0 {
		return nil, nil
	}
	gender = make(map[string]float64)
	age = make(map[string]float64)
	for k, v := range values {
		g, a, ok := strings.Cut(k, ".")
		if !ok {
			continue
		}
		gender[g] += v
		age[a] += v
	}
	return gender, age
}

func number(raw json.RawMessage) float64 {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var obj map[string]float64
	if err := json.Unmarshal(raw, &obj); err == nil {
		var total float64
		for _, v := range obj {
			total += v
		}
		return total
	}
	return 0
}
