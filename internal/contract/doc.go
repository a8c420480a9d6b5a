// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package contract provides size-validation constants used before
// decoding the pattern-configuration file and the whitelist file.
//
//	limit := contract.SoftLimitBytes()
//	result := contract.ValidateAuxFileSize(data)
//	if !result.OK {
//	    log.Printf("rejected: %s", result.Message)
//	}
//
// The limit is adjustable via PIISCAN_SOFT_LIMIT_BYTES, defaulting to
// DefaultSoftLimitBytes (16 MiB) when unset or invalid.
package contract
