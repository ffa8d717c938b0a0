package main

import "testing"

func TestIDEncodeDecode(t *testing.T) {
	out, _, err := runCLI(t, []string{"id", "encode", "0", "42", "102"}, "")
	if err != nil {
		t.Fatalf("id encode: %v", err)
	}
	if out != "0\t2\n42\t3H\n102\t5K\n" {
		t.Fatalf("unexpected encode output %q", out)
	}

	out, _, err = runCLI(t, []string{"id", "decode", "3H", "5K"}, "")
	if err != nil {
		t.Fatalf("id decode: %v", err)
	}
	if out != "3H\t42\n5K\t102\n" {
		t.Fatalf("unexpected decode output %q", out)
	}
}

func TestIDCommandsRejectInvalidInput(t *testing.T) {
	if _, _, err := runCLI(t, []string{"id", "encode", "-1"}, ""); err == nil {
		t.Fatal("expected error for negative id")
	}
	if _, _, err := runCLI(t, []string{"id", "decode", "0O"}, ""); err == nil {
		t.Fatal("expected error for characters outside the alphabet")
	}
}
