// https://github.com/usbarmory/tamago
//
// Copyright (c) The TamaGo Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Package chipregs holds the BCM43430 register/address map: CCCR (function
// 0) offsets, the backplane window register, and the per-core silicon
// backplane wrapper offsets used by the bring-up sequencer.
package chipregs

// SDIO function numbers.
const (
	FuncBus = 0 // bus configuration (CCCR)
	FuncBak = 1 // backplane
	FuncRad = 2 // WLAN radio / SDPCM
)

// Bus config registers (function 0, CCCR).
const (
	BusResetReg      = 0x006 // undocumented bus reset poke, bring-up step 1
	BusIOEnReg       = 0x002 // SDIOD_CCCR_IOEN
	BusIORdyReg      = 0x003 // SDIOD_CCCR_IORDY
	BusIntEnReg      = 0x004 // SDIOD_CCCR_INTEN
	BusIntPendReg    = 0x005 // SDIOD_CCCR_INTPEND
	BusBICtrlReg     = 0x007 // SDIOD_CCCR_BICTRL
	BusSpeedCtrlReg  = 0x013 // SDIOD_CCCR_SPEED_CONTROL
	BusBRCMCardCap   = 0x0f0 // SDIOD_CCCR_BRCM_CARDCAP
	BusBakBlkSizeReg = 0x110 // SDIOD_CCCR_F1BLKSIZE_0
	BusRadBlkSizeReg = 0x210 // SDIOD_CCCR_F2BLKSIZE_0
)

// Backplane config registers (function 1).
const (
	BakWinAddrReg      = 0x1000a // SDIO_BACKPLANE_ADDRESS_LOW
	BakChipClockCSRReg = 0x1000e // SDIO_CHIP_CLOCK_CSR
	BakPullupReg       = 0x1000f // SDIO_PULL_UP
	BakWakeupReg       = 0x1001e // SDIO_WAKEUP_CTRL
)

// Silicon backplane base addresses and per-core wrapper offsets.
const (
	BakBaseAddr = 0x18000000 // CHIPCOMMON_BASE_ADDRESS

	MacBaseAddr = BakBaseAddr + 0x1000 // DOT11MAC_BASE_ADDRESS
	MacBaseWrap = MacBaseAddr + 0x100000
	MacIOCtrl   = MacBaseWrap + 0x408
	MacResetCtl = MacBaseWrap + 0x800
	MacResetSts = MacBaseWrap + 0x804

	SBBaseAddr         = BakBaseAddr + 0x2000 // SDIO_BASE_ADDRESS
	SBIntStatusReg     = SBBaseAddr + 0x20
	SBIntHostMaskReg   = SBBaseAddr + 0x24
	SBFuncIntMaskReg   = SBBaseAddr + 0x34
	SBToSBMboxReg      = SBBaseAddr + 0x40
	SBToSBMboxDataReg  = SBBaseAddr + 0x48
	SBToHostMboxDtaReg = SBBaseAddr + 0x4c

	ArmBaseAddr = BakBaseAddr + 0x3000 // WLAN_ARMCM3_BASE_ADDRESS
	ArmBaseWrap = ArmBaseAddr + 0x100000
	ArmIOCtrl   = ArmBaseWrap + 0x408
	ArmResetCtl = ArmBaseWrap + 0x800
	ArmResetSts = ArmBaseWrap + 0x804

	SRAMBaseAddr     = BakBaseAddr + 0x4000 // SOCSRAM_BASE_ADDRESS
	SRAMBankXIdxReg  = SRAMBaseAddr + 0x10
	SRAMUnknownReg   = SRAMBaseAddr + 0x40
	SRAMBankXPDAReg  = SRAMBaseAddr + 0x44
	SRAMBaseWrap     = SRAMBaseAddr + 0x100000
	SRAMIOCtrl       = SRAMBaseWrap + 0x408
	SRAMResetCtl     = SRAMBaseWrap + 0x800
	SRAMResetSts     = SRAMBaseWrap + 0x804

	SRControl1 = BakBaseAddr + 0x508 // CHIPCOMMON_SR_CONTROL1
)

// Backplane window geometry (spec.md §3, §4.4).
const (
	WindowBit32 = 0x8000 // offset OR'd in for a 32-bit-window access
	AddrMask    = 0x7fff // offset within the 32 KiB window
	WindowMask  = ^uint32(AddrMask)
)

// Binary constants (spec.md §6).
const (
	FirmwareLen = 0x5ee84
	TxBufferLen = 0x4000
	LogSize     = 50
)
