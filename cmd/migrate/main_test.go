package main

import (
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appmigrations "github.com/wolfman30/hospital-booking-platform/migrations"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		args    []string
		want    command
		wantErr bool
	}{
		{nil, command{name: "up"}, false},
		{[]string{"up"}, command{name: "up"}, false},
		{[]string{"version"}, command{name: "version"}, false},
		{[]string{"down"}, command{name: "down", n: 1}, false},
		{[]string{"down", "2"}, command{name: "down", n: 2}, false},
		{[]string{"down", "0"}, command{}, true},
		{[]string{"force", "3"}, command{name: "force", n: 3}, false},
		{[]string{"force"}, command{}, true},
		{[]string{"sideways"}, command{}, true},
	}
	for _, tc := range cases {
		got, err := parseCommand(tc.args)
		if tc.wantErr {
			assert.Error(t, err, tc.args)
			continue
		}
		require.NoError(t, err, tc.args)
		assert.Equal(t, tc.want, got)
	}
}

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run(nil, "", logging.NewWithWriter(io.Discard, "error"))
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(appmigrations.FS, ".")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)

	appointments, err := fs.ReadFile(appmigrations.FS, "000002_appointments.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(appointments), "(appointment_date, token_number)")
}
