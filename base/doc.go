/*

Package base provides base utilities for latent.

Sub-packages provide structured logging (log) and checkpoint encoding
(encoding). The random generator used by every trainer lives here.

*/
package base
