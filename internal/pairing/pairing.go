// Package pairing rebuilds front/back sheets from a flat listing of scans.
package pairing

import (
	"sort"

	"github.com/kpauljoseph/consentsort/internal/sequence"
	"github.com/kpauljoseph/consentsort/pkg/models"
)

type Result struct {
	Doublets []models.Doublet
	Singlets []models.ScanFile
}

// Index derives the sequence number of every path. Paths without a digit
// run cannot take part in pairing and are returned separately.
func Index(paths []string) (files []models.ScanFile, unnumbered []string) {
	for _, p := range paths {
		seq, ok := sequence.Extract(p)
		if !ok {
			unnumbered = append(unnumbered, p)
			continue
		}
		files = append(files, models.ScanFile{Path: p, Seq: seq})
	}
	return files, unnumbered
}

// SortDescending orders files by base name, highest first. The comparison is
// lexicographic, so "image-10" sorts below "image-9".
func SortDescending(files []models.ScanFile) {
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Name() > files[j].Name()
	})
}

// Pair splits a descending listing into doublets and singlets.
//
// The smallest remaining odd and even files are compared; an even file that
// does not directly follow the odd one becomes a singlet and the odd file is
// retried against the next even file. Odd and even files left over once
// either side runs out are singlets too.
func Pair(files []models.ScanFile) Result {
	var odd, even []models.ScanFile
	for _, f := range files {
		if f.IsOdd() {
			odd = append(odd, f)
		} else {
			even = append(even, f)
		}
	}

	var res Result
	for len(odd) > 0 && len(even) > 0 {
		o := odd[len(odd)-1]
		e := even[len(even)-1]
		even = even[:len(even)-1]

		if o.Seq+1 == e.Seq {
			odd = odd[:len(odd)-1]
			res.Doublets = append(res.Doublets, models.Doublet{Odd: o, Even: e})
			continue
		}
		res.Singlets = append(res.Singlets, e)
	}

	res.Singlets = append(res.Singlets, even...)
	res.Singlets = append(res.Singlets, odd...)
	return res
}
