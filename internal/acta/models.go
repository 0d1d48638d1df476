// Package acta tracks the physical record books searched during a request.
// An acta has its own small lifecycle, coupled to the request lifecycle only
// through the search outcome: a found acta is what satisfies the
// acta_encontrada precondition.
package acta

import (
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Estado is the search state of one physical acta.
type Estado string

const (
	EstadoDisponible       Estado = "DISPONIBLE"
	EstadoAsignadaBusqueda Estado = "ASIGNADA_BUSQUEDA"
	EstadoEncontrada       Estado = "ENCONTRADA"
	EstadoNoEncontrada     Estado = "NO_ENCONTRADA"
)

// transicionesActa is the acta search graph. ENCONTRADA is terminal;
// NO_ENCONTRADA allows reassignment for a second pass through the archive.
var transicionesActa = map[Estado][]Estado{
	EstadoDisponible:       {EstadoAsignadaBusqueda},
	EstadoAsignadaBusqueda: {EstadoEncontrada, EstadoNoEncontrada},
	EstadoEncontrada:       {},
	EstadoNoEncontrada:     {EstadoAsignadaBusqueda},
}

// canMove reports whether from → to is a registered acta edge.
func canMove(from, to Estado) bool {
	for _, next := range transicionesActa[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Acta is one physical record book entry under search.
type Acta struct {
	ID          domain.ActaID
	SolicitudID domain.SolicitudID
	Libro       string
	Folio       string
	Anio        int
	Institucion string
	Ubicacion   string
	Estado      Estado
	AsignadoA   *domain.UsuarioID

	Observaciones   string
	FechaCreacion   time.Time
	FechaAsignacion *time.Time
	FechaResultado  *time.Time
}
