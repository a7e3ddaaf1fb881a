/*
Copyright © 2013 the aviso-lagrangian authors.
This file is part of aviso-lagrangian.

aviso-lagrangian is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

aviso-lagrangian is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with aviso-lagrangian.  If not, see <http://www.gnu.org/licenses/>.
*/

package lagrangian

import "github.com/sirupsen/logrus"

// NewLogger builds a *logrus.Logger for one CLI invocation: Info level by
// default, Debug when verbose is requested (the --verbose flag of both
// map_of_fle and path, spec.md §6).
func NewLogger(verbose bool) *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.InfoLevel
	if verbose {
		log.Level = logrus.DebugLevel
	}
	return log
}
