package analysis

import (
	"reflect"
	"regexp"
	"slices"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()
	indexRe  = regexp.MustCompile(`\[\d+\]$`)
)

// Report is the company analysis report.
type Report struct {
	CompanyName      string   `json:"company_name" yaml:"company_name" toml:"company_name" validate:"required" jsonschema:"description=会社名" fake:"{company}"`
	Products         []string `json:"products" yaml:"products" toml:"products" validate:"required,min=1" jsonschema:"description=提供するプロダクトやサービス名" fakesize:"2"`
	CoreAlgorithms   []string `json:"core_algorithms" yaml:"core_algorithms" toml:"core_algorithms" validate:"required,min=1" jsonschema:"description=コアAIアルゴリズム: サービスに活用されているAI関連技術 (LLM RAG AIエージェント 等)" fakesize:"2"`
	AITasks          []string `json:"ai_tasks" yaml:"ai_tasks" toml:"ai_tasks" validate:"required,min=1" jsonschema:"description=AIタスク: サービスが実施するタスク (物体検知 異常検知 等)" fakesize:"2"`
	TargetProblems   []string `json:"target_problems" yaml:"target_problems" toml:"target_problems" validate:"required,min=1" jsonschema:"description=ターゲット課題: プロダクトやサービスが解決しようとする課題" fakesize:"2"`
	TargetIndustries []string `json:"target_industries" yaml:"target_industries" toml:"target_industries" validate:"required,min=1" jsonschema:"description=ターゲット業界" fakesize:"2"`
	ContractTypes    []string `json:"contract_types" yaml:"contract_types" toml:"contract_types" validate:"required,min=1" jsonschema:"description=契約形態 (SaaS API オープンソース 受託開発 等)" fakesize:"1"`
	ServiceDetails   string   `json:"service_details" yaml:"service_details" toml:"service_details" validate:"required" jsonschema:"description=サービス詳細: 具体的な機能や特徴" fake:"{buzzword} {bs}"`
	Sources          []string `json:"sources" yaml:"sources" toml:"sources" validate:"required,min=1,dive,url" jsonschema:"description=出典元のURL" fake:"{url}" fakesize:"2"`
}

// RequiredFields returns the names of the report fields, in order.
func RequiredFields() []string {
	t := reflect.TypeOf(Report{})
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		names = append(names, jsonName(t.Field(i)))
	}
	return names
}

// Missing returns the names of the fields that are empty or invalid, in field order.
func (r *Report) Missing() []string {
	if r == nil {
		return RequiredFields()
	}
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return RequiredFields()
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[indexRe.ReplaceAllString(fe.Field(), "")] = true
	}
	var missing []string
	for _, name := range RequiredFields() {
		if failed[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete returns true when every field is filled.
func (r *Report) Complete() bool {
	return r != nil && len(r.Missing()) == 0
}

// Fake returns a report with fake values.
func (Report) Fake() any {
	r := new(Report)
	_ = gofakeit.Struct(r)
	r.Sources = []string{gofakeit.URL(), gofakeit.URL()}
	return r
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}

func missingKey(missing []string) string {
	s := slices.Clone(missing)
	slices.Sort(s)
	return strings.Join(s, ",")
}
