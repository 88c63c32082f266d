package xmask

import (
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_IsSensitive(t *testing.T) {
	c := NewCatalog()
	tests := []struct {
		name string
		want bool
	}{
		{"password", true},
		{"oldPassword", true},
		{"apiKey", true},
		{"X-Auth-Token", true},
		{"Authorization", true},
		{"CVV", true},
		{"name", false},
		{"email", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsSensitive(tt.name))
		})
	}
}

func TestCatalog_TermsOptions(t *testing.T) {
	c := NewCatalog(WithTerms(" Salary ", "", "salary"))
	assert.Equal(t, []string{"salary"}, c.Terms())
	assert.True(t, c.IsSensitive("baseSalary"))
	assert.False(t, c.IsSensitive("password"))

	c = NewCatalog(WithExtraTerms("iban"))
	assert.True(t, c.IsSensitive("IBAN"))
	assert.True(t, c.IsSensitive("password"))
}

type tagged struct {
	Email    string `json:"email" mask:"email"`
	Phone    string `json:"phone" mask:"partial,3,4"`
	AuthorID string `json:"authorId" mask:"-"`
	Broken   string `json:"broken" mask:"partial,x"`
	Plain    string `json:"plain"`
}

func TestCatalog_ScanTags(t *testing.T) {
	c := NewCatalog()
	typ := reflect.TypeFor[tagged]()

	r, ok := c.FieldRule(typ, "Email")
	require.True(t, ok)
	assert.Equal(t, StrategyEmail, r.Strategy)

	r, ok = c.FieldRule(reflect.TypeFor[*tagged](), "AuthorID")
	require.True(t, ok)
	assert.True(t, r.IsSkip())

	r, ok = c.FieldRule(typ, "Broken")
	require.True(t, ok, "非法标签退化为整体遮蔽")
	assert.Equal(t, StrategyFull, r.Strategy)

	_, ok = c.FieldRule(typ, "Plain")
	assert.False(t, ok)
}

func TestCatalog_Validate(t *testing.T) {
	c := NewCatalog()
	err := c.Validate(tagged{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTag)
	assert.Contains(t, err.Error(), "Broken")

	type ok struct {
		A string `mask:"full"`
	}
	assert.NoError(t, c.Validate(&ok{}))
	assert.ErrorIs(t, c.Validate(nil), ErrNilType)
	assert.ErrorIs(t, c.Validate(42), ErrNotStruct)
}

func TestCatalog_ScanOncePerType(t *testing.T) {
	c := NewCatalog()
	typ := reflect.TypeFor[tagged]()

	var wg sync.WaitGroup
	results := make([]*typeRules, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.rulesFor(typ)
		}(i)
	}
	wg.Wait()
	for _, r := range results[1:] {
		assert.Same(t, results[0], r)
	}
}

func TestCatalog_Register(t *testing.T) {
	type card struct {
		Number string
		Holder string
	}

	c := NewCatalog()
	_, ok := c.FieldRule(reflect.TypeFor[card](), "Holder")
	assert.False(t, ok)

	require.NoError(t, c.Register(reflect.TypeFor[*card](), map[string]Rule{
		"Number": Partial(0, 4),
		"Holder": {Strategy: StrategyPattern, Pattern: `[a-z]`},
	}))

	r, ok := c.FieldRule(reflect.TypeFor[card](), "Number")
	require.True(t, ok, "登记后缓存失效并重新扫描")
	assert.Equal(t, "************1111", r.Apply("4111111111111111"))

	r, ok = c.FieldRule(reflect.TypeFor[card](), "Holder")
	require.True(t, ok)
	assert.Equal(t, "J*** S****", r.Apply("John Smith"))
}

func TestCatalog_RegisterErrors(t *testing.T) {
	c := NewCatalog()
	assert.ErrorIs(t, c.Register(nil, nil), ErrNilType)
	assert.ErrorIs(t, c.Register(reflect.TypeFor[string](), nil), ErrNotStruct)

	err := c.Register(reflect.TypeFor[tagged](), map[string]Rule{"Missing": Full()})
	assert.ErrorIs(t, err, ErrUnknownField)

	err = c.Register(reflect.TypeFor[tagged](), map[string]Rule{
		"Plain": {Strategy: StrategyPattern, Pattern: "("},
	})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestContainsAny(t *testing.T) {
	frags := []string{"password", "Token"}
	assert.True(t, ContainsAny("newPassword", frags))
	assert.True(t, ContainsAny("refresh_token", frags))
	assert.False(t, ContainsAny("name", frags))
	assert.False(t, ContainsAny("name", nil))
	assert.False(t, ContainsAny("", frags))
}
