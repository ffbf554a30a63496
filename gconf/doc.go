/*
Package gconf implements a configuration store intended to be used as a
global, in-database configuration.

A configuration is a single model per package, stored under the "_c:<pkg>"
key. It is loaded from the genesis "conf" section and read back by the
package that owns it on every use, so that a changed configuration never
requires a restart.
*/
package gconf
