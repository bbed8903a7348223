package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadflow/internal/model"
)

// criteriaFlags are search criteria overrides shared by search and run.
type criteriaFlags struct {
	file       string
	industries []string
	titles     []string
	keywords   []string
	city       string
	state      string
	country    string
	limit      int
}

func (f *criteriaFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.file, "criteria", "", "YAML file with search criteria")
	fs.StringSliceVar(&f.industries, "industry", nil, "industry filter (repeatable)")
	fs.StringSliceVar(&f.titles, "title", nil, "job title filter (repeatable)")
	fs.StringSliceVar(&f.keywords, "keyword", nil, "keyword filter (repeatable)")
	fs.StringVar(&f.city, "city", "", "city filter")
	fs.StringVar(&f.state, "state", "", "state filter")
	fs.StringVar(&f.country, "country", "", "country filter")
	fs.IntVar(&f.limit, "limit", 0, "max leads to return (default 50)")
}

// load reads the criteria file, if any, and applies flag overrides on top.
func (f *criteriaFlags) load() (model.SearchCriteria, error) {
	var c model.SearchCriteria
	if f.file != "" {
		data, err := os.ReadFile(f.file)
		if err != nil {
			return c, eris.Wrap(err, "read criteria file")
		}
		if c, err = parseCriteria(data); err != nil {
			return c, err
		}
	}

	if len(f.industries) > 0 {
		c.Industries = f.industries
	}
	if len(f.titles) > 0 {
		c.JobTitles = f.titles
	}
	if len(f.keywords) > 0 {
		c.Keywords = f.keywords
	}
	if f.city != "" || f.state != "" || f.country != "" {
		if c.Location == nil {
			c.Location = &model.Location{}
		}
		if f.city != "" {
			c.Location.City = f.city
		}
		if f.state != "" {
			c.Location.State = f.state
		}
		if f.country != "" {
			c.Location.Country = f.country
		}
	}
	if f.limit > 0 {
		c.Limit = f.limit
	}
	return c, nil
}

// parseCriteria decodes YAML criteria and rejects unknown keys.
func parseCriteria(data []byte) (model.SearchCriteria, error) {
	var c model.SearchCriteria
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, eris.Wrap(err, "parse criteria")
	}
	if c.Limit < 0 {
		return c, eris.New("parse criteria: limit must not be negative")
	}
	return c, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
