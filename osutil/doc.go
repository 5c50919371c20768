/*
Package osutil hides the operating system differences of signal handling and privilege
reduction from the netresolvd program.
*/
package osutil
