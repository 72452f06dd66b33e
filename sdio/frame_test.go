// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package sdio

import "testing"

func TestEncodeCmdVectors(t *testing.T) {
	cases := []struct {
		name string
		num  uint8
		arg  uint32
		want Frame
	}{
		{"CMD0", 0, 0x00000000, Frame{0x40, 0x00, 0x00, 0x00, 0x00, 0x95}},
		{"CMD8", 8, 0x000001aa, Frame{0x48, 0x00, 0x00, 0x01, 0xaa, 0x87}},
	}

	for _, c := range cases {
		got := EncodeCmd(c.num, c.arg)
		if got != c.want {
			t.Errorf("%s: EncodeCmd = %x, want %x", c.name, got, c.want)
		}

		num, arg, crcOK := got.Decode()
		if num != c.num || arg != c.arg || !crcOK {
			t.Errorf("%s: Decode = (%d, %#x, %v), want (%d, %#x, true)", c.name, num, arg, crcOK, c.num, c.arg)
		}
	}
}

func TestCmd52RoundTrip(t *testing.T) {
	f := EncodeCmd52(1, 0x1000e, 0x28, true, false)

	num, arg, crcOK := f.Decode()
	if num != 52 || !crcOK {
		t.Fatalf("Decode = (%d, crcOK=%v)", num, crcOK)
	}

	fn, addr, data, wr, raw := DecodeCmd52(arg)
	if fn != 1 || addr != 0x1000e || data != 0x28 || !wr || raw {
		t.Errorf("DecodeCmd52 = (fn=%d, addr=%#x, data=%#x, wr=%v, raw=%v)", fn, addr, data, wr, raw)
	}
}

func TestCmd53RoundTrip(t *testing.T) {
	f := EncodeCmd53(2, 0x8000, 512&cmd53CountMask, false, false, true)

	num, arg, crcOK := f.Decode()
	if num != 53 || !crcOK {
		t.Fatalf("Decode = (%d, crcOK=%v)", num, crcOK)
	}

	fn, addr, _, wr, blockMode, inc := DecodeCmd53(arg)
	if fn != 2 || addr != 0x8000 || wr || blockMode || !inc {
		t.Errorf("DecodeCmd53 = (fn=%d, addr=%#x, wr=%v, blockMode=%v, inc=%v)", fn, addr, wr, blockMode, inc)
	}

	addrl, addrm, addrh := AddrParts(addr)
	if got := JoinAddrParts(addrl, addrm, addrh); got != 0x8000 {
		t.Errorf("addrl|addrm<<7|addrh<<15 = %#x, want 0x8000", got)
	}
}
