package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorHelpers(t *testing.T) {
	err := NewInvalidArgument("bad")
	if !IsInvalidArgument(err) {
		t.Fatal("expected invalid argument")
	}

	wrapped := WrapInternal(err, "ctx")
	if !IsInternal(wrapped) {
		t.Fatal("expected internal")
	}
	if IsInvalidArgument(wrapped) {
		t.Fatal("internal wrap must not leak the inner kind")
	}

	tok := NewInvalidToken(errors.New("token is expired"))
	if !IsInvalidToken(tok) {
		t.Fatal("expected invalid token")
	}
	if tok.Error() != "invalid token: token is expired" {
		t.Fatalf("unexpected message %q", tok.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NewInvalidArgument("x"), http.StatusUnprocessableEntity},
		{NewAlreadyExists("x"), http.StatusConflict},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{NewInvalidToken(errors.New("x")), http.StatusUnauthorized},
		{NewNotFound("x"), http.StatusNotFound},
		{ErrTooManyRequests, http.StatusTooManyRequests},
		{WrapInternal(ErrNotFound, "x"), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatus(c.err); got != c.want {
			t.Errorf("%v: want %d got %d", c.err, c.want, got)
		}
	}
}
