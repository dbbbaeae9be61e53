package statemachine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplySetGetDelete(t *testing.T) {
	a := NewAdapter(NewKV())

	require.Equal(t, ReplyOk, a.Apply("SET x 100"))
	require.Equal(t, "100", a.Apply("GET x"))
	require.Equal(t, ReplyOk, a.Apply("DELETE x"))
	require.Equal(t, ReplyKeyNotFound, a.Apply("GET x"))
	require.Equal(t, ReplyKeyNotFound, a.Apply("DELETE x"))
}

func TestApplyIsCaseInsensitive(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, ReplyOk, a.Apply("set y 1"))
	require.Equal(t, "1", a.Apply("get y"))
}

func TestApplySetWithMultiWordValue(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, ReplyOk, a.Apply("SET greeting hello world"))
	require.Equal(t, "hello world", a.Apply("GET greeting"))
}

func TestApplyNoOp(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, ReplyOk, a.Apply("NO_OP"))
}

func TestApplyUnrecognizedVerb(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, ReplyNotRecognized, a.Apply("FROB x"))
}

func TestApplyMalformedRequest(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, "Request format not supported - GET", a.Apply("GET"))
	require.Equal(t, "Request format not supported - SET x", a.Apply("SET x"))
}

func TestApplyEmptyCommand(t *testing.T) {
	a := NewAdapter(NewKV())
	require.Equal(t, "Request format not supported - ", a.Apply(""))
}
