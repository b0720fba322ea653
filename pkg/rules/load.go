package rules

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile reads match rules from a YAML file of the form:
//
//	rules:
//	  - eventSource: wafv2.amazonaws.com
//	    eventNames: [CreateWebACL, UpdateWebACL, DeleteWebACL]
//	    resourceName: MyWebACL-TF
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading rules file")
	}
	return Parse(data)
}

// Parse unmarshals and validates a YAML rules document.
func Parse(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing rules file")
	}
	for i, r := range f.Rules {
		if err := r.Validate(); err != nil {
			return nil, errors.Wrapf(err, "rule %d", i)
		}
	}
	return f.Rules, nil
}
