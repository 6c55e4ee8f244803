package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tuition-pricing-service/internal/entity"
)

var hundred = decimal.NewFromInt(100)

// RulePack is the on-disk layout of a discount rule file.
type RulePack struct {
	Version     string       `yaml:"version"`
	Description string       `yaml:"description"`
	Discounts   []RuleConfig `yaml:"discounts"`
}

// RuleConfig is one discount as written in YAML. Value stays a string so it is parsed
// as an exact decimal.
type RuleConfig struct {
	ID                  string                 `yaml:"id"`
	Type                string                 `yaml:"type"`
	ValueType           string                 `yaml:"valueType"`
	Value               string                 `yaml:"value"`
	Description         string                 `yaml:"description"`
	Order               int                    `yaml:"order"`
	MinSiblings         int                    `yaml:"minSiblings"`
	ApplyToOriginalBase bool                   `yaml:"applyToOriginalBase"`
	Condition           map[string]interface{} `yaml:"condition"`
}

func LoadRulePack(path string) ([]entity.DiscountRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading rule pack %s", path)
	}
	return ParseRulePack(data)
}

// ParseRulePack decodes and checks a YAML rule pack. Rules come back sorted by order, then id.
func ParseRulePack(data []byte) ([]entity.DiscountRule, error) {
	var pack RulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, errors.Wrap(err, "decoding rule pack")
	}

	seen := make(map[string]struct{}, len(pack.Discounts))
	out := make([]entity.DiscountRule, 0, len(pack.Discounts))
	for i, rc := range pack.Discounts {
		rule, err := rc.toRule()
		if err != nil {
			return nil, errors.Wrapf(err, "discount #%d", i)
		}
		if _, dup := seen[rule.ID]; dup {
			return nil, fmt.Errorf("discount #%d: duplicate id %q", i, rule.ID)
		}
		seen[rule.ID] = struct{}{}
		out = append(out, rule)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (rc RuleConfig) toRule() (entity.DiscountRule, error) {
	if rc.ID == "" {
		return entity.DiscountRule{}, errors.New("id is required")
	}
	typ, err := entity.ParseDiscountType(rc.Type)
	if err != nil {
		return entity.DiscountRule{}, err
	}
	valueType, err := entity.ParseDiscountValueType(rc.ValueType)
	if err != nil {
		return entity.DiscountRule{}, err
	}
	value, err := decimal.NewFromString(rc.Value)
	if err != nil {
		return entity.DiscountRule{}, errors.Wrapf(err, "value %q", rc.Value)
	}
	if value.IsNegative() {
		return entity.DiscountRule{}, fmt.Errorf("value %s is negative", value)
	}
	if valueType == entity.ValuePercentage && value.GreaterThan(hundred) {
		return entity.DiscountRule{}, fmt.Errorf("percentage %s exceeds 100", value)
	}
	if rc.MinSiblings < 0 {
		return entity.DiscountRule{}, fmt.Errorf("minSiblings %d is negative", rc.MinSiblings)
	}

	rule := entity.DiscountRule{
		ID:                  rc.ID,
		Type:                typ,
		ValueType:           valueType,
		Value:               value,
		Description:         rc.Description,
		Order:               rc.Order,
		MinSiblings:         rc.MinSiblings,
		ApplyToOriginalBase: rc.ApplyToOriginalBase,
	}

	if len(rc.Condition) > 0 {
		cond, err := json.Marshal(rc.Condition)
		if err != nil {
			return entity.DiscountRule{}, errors.Wrap(err, "encoding condition")
		}
		// a dry run against an empty context rejects unknown operators at load time
		if _, err := Evaluate(cond, entity.DiscountContext{}.Vars()); err != nil {
			return entity.DiscountRule{}, err
		}
		rule.Condition = cond
	}
	return rule, nil
}
