package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("STUDIO_TEST_VALUE", "  hello ")
	assert.Equal(t, "hello", GetEnv("STUDIO_TEST_VALUE", "x"))
	t.Setenv("STUDIO_TEST_VALUE", "   ")
	assert.Equal(t, "x", GetEnv("STUDIO_TEST_VALUE", "x"))
}

func TestParseBoolEnv(t *testing.T) {
	for val, want := range map[string]bool{"yes": true, "ON": true, "0": false, "off": false, "maybe": true, "": true} {
		t.Setenv("STUDIO_TEST_BOOL", val)
		assert.Equal(t, want, ParseBoolEnv("STUDIO_TEST_BOOL", true), val)
	}
}

func TestParseIntEnv(t *testing.T) {
	for val, want := range map[string]int{"3": 3, " 12 ": 12, "-1": 1, "zero": 1, "": 1} {
		t.Setenv("STUDIO_TEST_INT", val)
		assert.Equal(t, want, ParseIntEnv("STUDIO_TEST_INT", 1), val)
	}
}

func TestParseDurationEnv(t *testing.T) {
	for val, want := range map[string]time.Duration{"45m": 45 * time.Minute, "15s": 15 * time.Second, "10": time.Minute, "-5s": time.Minute, "": time.Minute} {
		t.Setenv("STUDIO_TEST_DURATION", val)
		assert.Equal(t, want, ParseDurationEnv("STUDIO_TEST_DURATION", time.Minute), val)
	}
}

func TestParseListEnv(t *testing.T) {
	t.Setenv("STUDIO_TEST_LIST", "https://a.example, ,https://b.example ")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, ParseListEnv("STUDIO_TEST_LIST"))
	t.Setenv("STUDIO_TEST_LIST", "")
	assert.Nil(t, ParseListEnv("STUDIO_TEST_LIST"))
}
