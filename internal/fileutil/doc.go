// Package fileutil holds small file helpers shared by the report writers.
package fileutil
