// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charlcd is a container for the HD44780 character LCD driver and its
// supporting packages.
//
// hd44780 is the driver. It bit-bangs the controller through any gpio.PinOut.
// gpioline provides those lines from the Linux GPIO character device, while
// pcf857x, mcp23xxx and nxp74hc595 provide them through the common I²C and
// SPI backpacks. lcdsim emulates the controller at the pin level for tests and
// for development without hardware.
package charlcd
