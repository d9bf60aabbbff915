// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package systemd

import "errors"

var (
	// ErrMissingActiveState indicates systemctl show output without an
	// ActiveState property.
	ErrMissingActiveState = errors.New("systemctl output missing ActiveState")
	// ErrUnitNotFound indicates the supervisor does not know the unit.
	ErrUnitNotFound = errors.New("systemd unit not found")
)
