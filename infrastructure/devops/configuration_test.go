package devops

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSSM struct {
	value *string
	err   error
	name  string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.name = aws.ToString(in.Name)
	if f.err != nil {
		return nil, f.err
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Value: f.value}}, nil
}

const databasesYAML = `
- name: Dev
  host: localhost
  username: root
  password: development
- name: prod
  host: db.internal:3307
  username: punch
  password: secret
`

func TestGetDSN(t *testing.T) {
	assert.Equal(t, "root:pw@tcp(localhost:3306)/acme?parseTime=true",
		DBEntry{Host: "localhost", Username: "root", Password: "pw"}.GetDSN("acme"))
	assert.Equal(t, "root:pw@tcp(db:3307)/?parseTime=true",
		DBEntry{Host: "db:3307", Username: "root", Password: "pw"}.GetDSN(""))
}

func TestLoadDatabases(t *testing.T) {
	client := &fakeSSM{value: aws.String(databasesYAML)}

	dbs, err := LoadDatabases(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, "databases", client.name)
	require.Contains(t, dbs, "dev")
	assert.Equal(t, "development", dbs["dev"].Password)

	dsn, err := ResolveDSN(context.Background(), client, "PROD", "acme")
	require.NoError(t, err)
	assert.Equal(t, "punch:secret@tcp(db.internal:3307)/acme?parseTime=true", dsn)

	_, err = ResolveDSN(context.Background(), client, "staging", "acme")
	assert.EqualError(t, err, "environment 'staging' not found in parameter store")
}

func TestLoadDatabasesErrors(t *testing.T) {
	_, err := LoadDatabases(context.Background(), &fakeSSM{err: errors.New("denied")})
	assert.ErrorContains(t, err, "failed to get parameter databases")

	_, err = LoadDatabases(context.Background(), &fakeSSM{})
	assert.EqualError(t, err, "parameter databases is empty")

	_, err = LoadDatabases(context.Background(), &fakeSSM{value: aws.String("name: [")})
	assert.ErrorContains(t, err, "failed to unmarshal databases")
}
