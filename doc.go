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

// Package lagrangian computes Lagrangian Coherent Structures (FSLE and
// FTLE maps) from time-varying gridded velocity fields.
//
// A sliding-window field provider lazily loads gridded velocity
// snapshots, a fixed-step RK4 integrator advances stencils of
// particles through that field, and a map driver evolves one stencil
// per output grid node in parallel until each meets its termination
// criterion, distilling the Cauchy-Green strain tensor into
// eigenvalues and eigenvectors per node.
package lagrangian

// Version is the current release of this module.
const Version = "0.1.0"
