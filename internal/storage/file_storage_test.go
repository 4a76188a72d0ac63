package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/isdelr/hbnb-api/internal/models"
)

func TestFileStorageReloadMissingFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "file.json")
	s := NewFileStorage(path)
	g.Expect(s.Save()).To(Succeed())
	g.Expect(os.Remove(path)).To(Succeed())

	g.Expect(s.Reload()).To(Succeed())
	g.Expect(s.All("")).To(BeEmpty())
}

func TestFileStorageReloadEmptyFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "file.json")
	g.Expect(os.WriteFile(path, []byte("\n"), 0o644)).To(Succeed())

	s := NewFileStorage(path)
	g.Expect(s.Reload()).To(Succeed())
	g.Expect(s.Count("")).To(Equal(0))
}

func TestFileStorageDocumentLayout(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "file.json")
	s := NewFileStorage(path)
	want := map[string]map[string]any{}
	for _, e := range sample(t) {
		g.Expect(s.New(e)).To(Succeed())
		want[models.Key(e)] = models.ToMap(e)
	}
	g.Expect(s.Save()).To(Succeed())

	raw, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	var got map[string]map[string]any
	g.Expect(json.Unmarshal(raw, &got)).To(Succeed())

	// Normalize the expectation through the same JSON encoding.
	wantRaw, _ := json.Marshal(want)
	var wantDoc map[string]map[string]any
	g.Expect(json.Unmarshal(wantRaw, &wantDoc)).To(Succeed())
	g.Expect(got).To(Equal(wantDoc))
	for key, doc := range got {
		g.Expect(key).To(Equal(doc[models.ClassKey].(string) + "." + doc["id"].(string)))
	}
}

func TestFileStorageSaveFailureKeepsState(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "missing-dir", "file.json")
	s := NewFileStorage(path)
	e, _ := models.New(models.KindState)
	g.Expect(s.New(e)).To(Succeed())

	err := s.Save()
	var pe *PersistenceError
	g.Expect(errors.As(err, &pe)).To(BeTrue())
	g.Expect(pe.Op).To(Equal("write"))
	g.Expect(s.Get(models.KindState, e.Meta().ID)).NotTo(BeNil())
}

func TestFileStorageSaveReplacesWholeFile(t *testing.T) {
	g := NewWithT(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "file.json")
	s := NewFileStorage(path)
	a, _ := models.New(models.KindAmenity)
	b, _ := models.New(models.KindAmenity)
	g.Expect(s.New(a)).To(Succeed())
	g.Expect(s.New(b)).To(Succeed())
	g.Expect(s.Save()).To(Succeed())

	g.Expect(s.Delete(a)).To(Succeed())
	g.Expect(s.Save()).To(Succeed())

	fresh := NewFileStorage(path)
	g.Expect(fresh.Reload()).To(Succeed())
	g.Expect(fresh.Count(models.KindAmenity)).To(Equal(1))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(entries).To(HaveLen(1))
}

func TestFileStorageReloadRejectsBadDocuments(t *testing.T) {
	for name, content := range map[string]string{
		"not json":      "{",
		"unknown class": `{"Spaceship.1": {"__class__": "Spaceship", "id": "1"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			g := NewWithT(t)
			path := filepath.Join(t.TempDir(), "file.json")
			s := NewFileStorage(path)
			e, _ := models.New(models.KindState)
			g.Expect(s.New(e)).To(Succeed())
			g.Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())

			var pe *PersistenceError
			g.Expect(errors.As(s.Reload(), &pe)).To(BeTrue())
			g.Expect(s.Count("")).To(Equal(1))
		})
	}
}
