package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseFieldFlags(t *testing.T) {
	got, err := parseFieldFlags([]string{"user_code=U1", "password=a=b", " iban =TR1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user_code": "U1", "password": "a=b", "iban": "TR1"}, got)

	_, err = parseFieldFlags(nil)
	assert.ErrorIs(t, err, errNoFields)

	for _, bad := range []string{"novalue", "=x"} {
		_, err = parseFieldFlags([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestCredentialsSchemaCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"credentials", "schema", "bank_c"})

	require.NoError(t, root.Execute())

	var doc struct {
		Variant string `yaml:"variant"`
		Fields  []struct {
			Name   string `yaml:"name"`
			Secret bool   `yaml:"secret"`
		} `yaml:"fields"`
	}
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "bank_c", doc.Variant)
	require.Len(t, doc.Fields, 4)
	assert.Equal(t, "username", doc.Fields[0].Name)
	assert.True(t, doc.Fields[1].Secret)
}

func TestCredentialsSchemaCommand_UnknownVariant(t *testing.T) {
	root := newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"credentials", "schema", "bank_z"})

	assert.Error(t, root.Execute())
}

func TestSyncCommand_RequiresOneTarget(t *testing.T) {
	for _, args := range [][]string{
		{"sync"},
		{"sync", "--all", "--account-id=x"},
	} {
		root := newRootCommand()
		root.SetOut(&bytes.Buffer{})
		root.SetErr(&bytes.Buffer{})
		root.SetArgs(args)

		assert.Error(t, root.Execute(), args)
	}
}
