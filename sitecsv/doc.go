// Package sitecsv reads survey site tables and writes leaf assignment
// tables.
//
// Input rows follow the survey export format: a header line, then one row
// per site. Fields are separated by commas, blanks or carriage returns;
// empty fields are dropped, double quotes are removed and surrounding
// whitespace is trimmed. The default layout is
//
//	id, plt_cn, x_0, ..., x_{D-1}, year
//
// where the first two fields become the point attributes.
//
// Output rows are
//
//	leaf_id, year, attribute..., x_0, ..., x_{D-1}
package sitecsv
