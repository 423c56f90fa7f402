package cpu

import "testing"

func TestControlRegisters(t *testing.T) {
	defer func() {
		WriteCR0(0)
		WriteCR2(0)
		SwitchPDT(0)
	}()

	WriteCR0(ReadCR0() | CR0PagingEnabledBit)
	if ReadCR0()&CR0PagingEnabledBit == 0 {
		t.Error("expected bit 31 of CR0 to be set")
	}

	WriteCR2(0xbadf00d)
	if got := ReadCR2(); got != 0xbadf00d {
		t.Errorf("expected CR2 to contain the faulting address; got 0x%x", got)
	}

	SwitchPDT(0x200000)
	if got := ActivePDT(); got != 0x200000 {
		t.Errorf("expected CR3 to contain the PDT address; got 0x%x", got)
	}
}
