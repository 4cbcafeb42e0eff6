package primitives

import (
	"bytes"
	"errors"
	"testing"
)

func TestArgon2idKeyDeterministic(t *testing.T) {
	password := []byte("correct horse battery staple")
	salt := bytes.Repeat([]byte{0x42}, 16)

	a, err := Argon2idKey(password, salt, DefaultArgon2Params)
	if err != nil {
		t.Fatalf("Argon2idKey() failed: %v", err)
	}
	b, err := Argon2idKey(password, salt, DefaultArgon2Params)
	if err != nil {
		t.Fatalf("Argon2idKey() failed: %v", err)
	}
	if a != b {
		t.Error("Argon2idKey not deterministic for identical password/salt/params")
	}
}

func TestArgon2idKeyDifferentSaltsDiffer(t *testing.T) {
	password := []byte("correct horse battery staple")
	a, err := Argon2idKey(password, bytes.Repeat([]byte{0x01}, 16), DefaultArgon2Params)
	if err != nil {
		t.Fatalf("Argon2idKey() failed: %v", err)
	}
	b, err := Argon2idKey(password, bytes.Repeat([]byte{0x02}, 16), DefaultArgon2Params)
	if err != nil {
		t.Fatalf("Argon2idKey() failed: %v", err)
	}
	if a == b {
		t.Error("different salts must not derive the same key")
	}
}

func TestArgon2ParamsValidateRejectsBelowFloor(t *testing.T) {
	cases := []Argon2Params{
		{MemoryCostKiB: 1024, TimeCost: 4, Parallelism: 2},
		{MemoryCostKiB: 64 * 1024, TimeCost: 0, Parallelism: 2},
		{MemoryCostKiB: 64 * 1024, TimeCost: 4, Parallelism: 0},
	}
	for _, p := range cases {
		if err := p.Validate(); !errors.Is(err, ErrInvalidArgon2Params) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidArgon2Params", p, err)
		}
	}
}

func TestArgon2idKeyRejectsInvalidParams(t *testing.T) {
	bad := Argon2Params{MemoryCostKiB: 1, TimeCost: 1, Parallelism: 1}
	if _, err := Argon2idKey([]byte("pw"), []byte("salt0123456789ab"), bad); !errors.Is(err, ErrInvalidArgon2Params) {
		t.Errorf("expected ErrInvalidArgon2Params, got %v", err)
	}
}
