package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tuningstudio/tuning/internal/query"
	"github.com/tuningstudio/tuning/internal/session"
	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

// garageState is the state machine for profile and car edits.
type garageState int

const (
	garageNormal   garageState = iota
	garageBio                  // editing the bio line
	garageAddCar               // add car form
	garageEditCar              // edit form for the selected car
	garageDeleting             // delete confirmation for the selected car
	garagePhotos               // photo list of the selected car
)

type garageSection int

const (
	sectionCars garageSection = iota
	sectionOrders
)

type carsLoadedMsg struct {
	cars []domain.Car
	err  error
}

type ordersLoadedMsg struct {
	orders []domain.Order
	err    error
}

type carCreatedMsg struct {
	car *domain.Car
	err error
}

type carFetchedMsg struct {
	car *domain.Car
	err error
}

type carUpdatedMsg struct {
	car *domain.Car
	err error
}

type carPhotosLoadedMsg struct {
	carID  int64
	photos []domain.CarPhoto
	err    error
}

type primaryPhotoSetMsg struct {
	carID   int64
	photoID int64
	err     error
}

type carDeletedMsg struct {
	id  int64
	err error
}

type profileSavedMsg struct {
	user *domain.User
	err  error
}

type garageModel struct {
	svc     *Services
	state   garageState
	section garageSection

	cars        []domain.Car
	carCursor   int
	orders      []domain.Order
	orderCursor int

	bio        string
	carForm    formModel
	editingCar int64 // car behind the edit form
	carLoading bool

	photosCar   *domain.Car
	photos      []domain.CarPhoto
	photoCursor int

	loading   bool
	err       error
	statusMsg string
	width     int
	height    int
}

func newGarageModel(svc *Services) garageModel {
	return garageModel{svc: svc, carForm: newCarForm("ADD CAR")}
}

func newCarForm(title string) formModel {
	return newForm(title,
		formField{key: "brand", label: "brand", placeholder: "BMW"},
		formField{key: "model", label: "model", placeholder: "M3"},
		formField{key: "generation", label: "generation", placeholder: "E46"},
		formField{key: "year", label: "year", placeholder: "2004"},
		formField{key: "license_plate", label: "plate"},
		formField{key: "vin", label: "vin"},
		formField{key: "color", label: "color"},
	)
}

// fillCarForm loads car into the edit form.
func fillCarForm(f *formModel, car domain.Car) {
	f.SetValue("brand", car.Brand)
	f.SetValue("model", car.Model)
	f.SetValue("generation", car.Generation)
	year := ""
	if car.Year > 0 {
		year = strconv.Itoa(car.Year)
	}
	f.SetValue("year", year)
	f.SetValue("license_plate", car.LicensePlate)
	f.SetValue("vin", car.VIN)
	f.SetValue("color", car.Color)
}

func (m garageModel) Init() tea.Cmd {
	if m.svc.currentUser() == nil {
		return nil
	}
	return tea.Batch(m.loadCars(), m.loadOrders())
}

func (m garageModel) loadCars() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		cars, err := fetch(svc, "cars", svc.Client.ListCars)
		return carsLoadedMsg{cars: cars, err: err}
	}
}

func (m garageModel) loadOrders() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		orders, err := fetch(svc, "orders", svc.Client.ListOrders)
		return ordersLoadedMsg{orders: orders, err: err}
	}
}

func (m garageModel) loadCar(id int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		car, err := fetch(svc, query.Key("car", id), func(ctx context.Context) (*domain.Car, error) {
			return svc.Client.GetCar(ctx, id)
		})
		return carFetchedMsg{car: car, err: err}
	}
}

func (m garageModel) loadPhotos(carID int64) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		photos, err := fetch(svc, query.Key("car_photos", carID), func(ctx context.Context) ([]domain.CarPhoto, error) {
			return svc.Client.ListCarPhotos(ctx, carID)
		})
		return carPhotosLoadedMsg{carID: carID, photos: photos, err: err}
	}
}

func (m garageModel) selectedCar() *domain.Car {
	if m.section != sectionCars || m.carCursor >= len(m.cars) {
		return nil
	}
	return &m.cars[m.carCursor]
}

func (m garageModel) Update(msg tea.Msg) (garageModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionChangedMsg:
		if msg.snap.Loading {
			return m, nil
		}
		if !msg.snap.Authenticated() {
			m.cars, m.orders = nil, nil
			m.state = garageNormal
			m.svc.invalidate("cars", "orders")
			return m, nil
		}
		switch msg.snap.Event {
		case session.EventSignIn, session.EventRegister, session.EventInitialize:
			m.loading = true
			m.svc.invalidate("cars", "orders")
			return m, tea.Batch(m.loadCars(), m.loadOrders())
		}
		return m, nil

	case carsLoadedMsg:
		m.loading = false
		m.cars = msg.cars
		m.err = msg.err
		m.carCursor = clampCursor(m.carCursor, len(m.cars))
		return m, nil

	case ordersLoadedMsg:
		if msg.err == nil {
			m.orders = msg.orders
			m.orderCursor = clampCursor(m.orderCursor, len(m.orders))
		}
		return m, nil

	case carCreatedMsg:
		if msg.err != nil {
			m.carForm.ApplyError(msg.err)
			return m, nil
		}
		m.state = garageNormal
		m.carForm = newCarForm("ADD CAR")
		m.statusMsg = "added " + msg.car.Title()
		m.svc.invalidate("cars")
		return m, m.loadCars()

	case carFetchedMsg:
		if m.state != garageEditCar || !m.carLoading {
			return m, nil
		}
		m.carLoading = false
		if msg.err != nil {
			m.state = garageNormal
			m.editingCar = 0
			m.statusMsg = fmt.Sprintf("load failed: %v", msg.err)
			return m, nil
		}
		if msg.car.ID == m.editingCar {
			fillCarForm(&m.carForm, *msg.car)
		}
		return m, nil

	case carUpdatedMsg:
		if msg.err != nil {
			m.carForm.ApplyError(msg.err)
			return m, nil
		}
		for i := range m.cars {
			if m.cars[i].ID == msg.car.ID {
				m.cars[i] = *msg.car
			}
		}
		m.state = garageNormal
		m.editingCar = 0
		m.carForm = newCarForm("ADD CAR")
		m.statusMsg = "saved " + msg.car.Title()
		m.svc.invalidate("cars", query.Key("car", msg.car.ID))
		return m, nil

	case carPhotosLoadedMsg:
		if m.photosCar == nil || m.photosCar.ID != msg.carID {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("photos failed: %v", msg.err)
			return m, nil
		}
		m.photos = msg.photos
		m.photoCursor = clampCursor(m.photoCursor, len(m.photos))
		return m, nil

	case primaryPhotoSetMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("cover failed: %v", msg.err)
			return m, nil
		}
		if m.photosCar != nil && m.photosCar.ID == msg.carID {
			for i := range m.photos {
				m.photos[i].IsPrimary = m.photos[i].ID == msg.photoID
			}
		}
		m.statusMsg = "cover photo set"
		m.svc.invalidate("cars", query.Key("car", msg.carID), query.Key("car_photos", msg.carID))
		return m, nil

	case carDeletedMsg:
		m.state = garageNormal
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("delete failed: %v", msg.err)
			return m, nil
		}
		cars := m.cars[:0:0]
		for _, c := range m.cars {
			if c.ID != msg.id {
				cars = append(cars, c)
			}
		}
		m.cars = cars
		m.carCursor = clampCursor(m.carCursor, len(cars))
		m.statusMsg = "car removed"
		m.svc.invalidate("cars")
		return m, nil

	case profileSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("save failed: %v", msg.err)
			return m, nil
		}
		m.state = garageNormal
		m.statusMsg = "profile saved"
		return m, nil

	case orderPlacedMsg:
		if msg.err == nil {
			m.svc.invalidate("orders")
			return m, m.loadOrders()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		switch m.state {
		case garageBio:
			return m.handleKeyBio(msg)
		case garageAddCar, garageEditCar:
			return m.handleKeyCarForm(msg)
		case garageDeleting:
			return m.handleKeyDeleting(msg)
		case garagePhotos:
			return m.handleKeyPhotos(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m garageModel) handleKey(msg tea.KeyMsg) (garageModel, tea.Cmd) {
	me := m.svc.currentUser()
	if me == nil {
		return m, nil
	}
	switch msg.String() {
	case "j", "down":
		m.navDown()
	case "k", "up":
		m.navUp()
	case "tab":
		if m.section == sectionCars {
			m.section = sectionOrders
		} else {
			m.section = sectionCars
		}
	case "e":
		m.state = garageBio
		m.bio = me.Bio
	case "a":
		m.state = garageAddCar
	case "u":
		if car := m.selectedCar(); car != nil {
			m.state = garageEditCar
			m.editingCar = car.ID
			m.carLoading = true
			m.carForm = newCarForm("EDIT CAR")
			fillCarForm(&m.carForm, *car)
			return m, m.loadCar(car.ID)
		}
	case "p":
		if car := m.selectedCar(); car != nil {
			c := *car
			m.state = garagePhotos
			m.photosCar = &c
			m.photos = nil
			m.photoCursor = 0
			m.loading = true
			return m, m.loadPhotos(c.ID)
		}
	case "x":
		if m.section == sectionCars && m.carCursor < len(m.cars) {
			m.state = garageDeleting
		}
	case "r":
		m.loading = true
		m.svc.invalidate("cars", "orders")
		return m, tea.Batch(m.loadCars(), m.loadOrders())
	}
	return m, nil
}

func (m *garageModel) navDown() {
	switch m.section {
	case sectionCars:
		if m.carCursor < len(m.cars)-1 {
			m.carCursor++
		} else if len(m.orders) > 0 {
			m.section = sectionOrders
			m.orderCursor = 0
		}
	case sectionOrders:
		if m.orderCursor < len(m.orders)-1 {
			m.orderCursor++
		}
	}
}

func (m *garageModel) navUp() {
	switch m.section {
	case sectionOrders:
		if m.orderCursor > 0 {
			m.orderCursor--
		} else if len(m.cars) > 0 {
			m.section = sectionCars
			m.carCursor = len(m.cars) - 1
		}
	case sectionCars:
		if m.carCursor > 0 {
			m.carCursor--
		}
	}
}

func (m garageModel) handleKeyBio(msg tea.KeyMsg) (garageModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = garageNormal
	case "enter":
		svc, bio := m.svc, strings.TrimSpace(m.bio)
		return m, func() tea.Msg {
			var u *domain.User
			err := mutation(func(ctx context.Context) error {
				var err error
				u, err = svc.Session.UpdateProfile(ctx, client.ProfileUpdate{Bio: &bio})
				return err
			})
			return profileSavedMsg{user: u, err: err}
		}
	default:
		m.bio = editKey(m.bio, msg)
	}
	return m, nil
}

func (m garageModel) handleKeyCarForm(msg tea.KeyMsg) (garageModel, tea.Cmd) {
	if m.carLoading && msg.String() != "esc" {
		return m, nil
	}
	var act formAction
	m.carForm, act = m.carForm.Update(msg)
	switch act {
	case formCancel:
		m.state = garageNormal
		m.editingCar = 0
		m.carLoading = false
		m.carForm = newCarForm("ADD CAR")
	case formSubmit:
		req, ok := m.carRequest()
		if !ok {
			return m, nil
		}
		m.carForm.submitting = true
		svc := m.svc
		if id := m.editingCar; id != 0 {
			return m, func() tea.Msg {
				var car *domain.Car
				err := mutation(func(ctx context.Context) error {
					var err error
					car, err = svc.Client.UpdateCar(ctx, id, req)
					return err
				})
				return carUpdatedMsg{car: car, err: err}
			}
		}
		return m, func() tea.Msg {
			var car *domain.Car
			err := mutation(func(ctx context.Context) error {
				var err error
				car, err = svc.Client.CreateCar(ctx, req)
				return err
			})
			return carCreatedMsg{car: car, err: err}
		}
	}
	return m, nil
}

// carRequest validates the car form.
func (m *garageModel) carRequest() (client.CarRequest, bool) {
	f := &m.carForm
	f.ClearErrors()
	ok := f.Require("brand", "model")
	var year int
	if y := f.Value("year"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil || n < 1900 || n > time.Now().Year()+1 {
			f.SetError("year", "not a valid year")
			ok = false
		}
		year = n
	}
	return client.CarRequest{
		Brand:        f.Value("brand"),
		Model:        f.Value("model"),
		Generation:   f.Value("generation"),
		Year:         year,
		LicensePlate: f.Value("license_plate"),
		VIN:          f.Value("vin"),
		Color:        f.Value("color"),
	}, ok
}

func (m garageModel) handleKeyDeleting(msg tea.KeyMsg) (garageModel, tea.Cmd) {
	switch msg.String() {
	case "y":
		if m.carCursor >= len(m.cars) {
			m.state = garageNormal
			return m, nil
		}
		svc, id := m.svc, m.cars[m.carCursor].ID
		return m, func() tea.Msg {
			err := mutation(func(ctx context.Context) error { return svc.Client.DeleteCar(ctx, id) })
			return carDeletedMsg{id: id, err: err}
		}
	case "n", "esc":
		m.state = garageNormal
	}
	return m, nil
}

func (m garageModel) handleKeyPhotos(msg tea.KeyMsg) (garageModel, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.photoCursor < len(m.photos)-1 {
			m.photoCursor++
		}
	case "k", "up":
		if m.photoCursor > 0 {
			m.photoCursor--
		}
	case "s", "enter":
		if m.photosCar == nil || m.photoCursor >= len(m.photos) {
			return m, nil
		}
		photo := m.photos[m.photoCursor]
		if photo.IsPrimary {
			m.statusMsg = "already the cover"
			return m, nil
		}
		svc, carID, photoID := m.svc, m.photosCar.ID, photo.ID
		return m, func() tea.Msg {
			err := mutation(func(ctx context.Context) error { return svc.Client.SetPrimaryCarPhoto(ctx, photoID) })
			return primaryPhotoSetMsg{carID: carID, photoID: photoID, err: err}
		}
	case "r":
		if m.photosCar != nil {
			m.loading = true
			m.svc.invalidate(query.Key("car_photos", m.photosCar.ID))
			return m, m.loadPhotos(m.photosCar.ID)
		}
	case "esc":
		m.state = garageNormal
		m.photosCar = nil
		m.photos = nil
		m.loading = false
	}
	return m, nil
}

func (m garageModel) isEditing() bool {
	return m.state == garageBio || m.state == garageAddCar || m.state == garageEditCar
}

func (m garageModel) View() string {
	var b strings.Builder
	b.WriteString(" " + searchStyle.Render("GARAGE") + "\n")
	b.WriteString(separator(m.width))

	me := m.svc.currentUser()
	if me == nil {
		b.WriteString(" " + dimStyle.Render("sign in to see your profile, cars and orders. press i"))
		return b.String()
	}

	if m.statusMsg != "" {
		b.WriteString(" " + statusStyle.Render(m.statusMsg) + "\n")
	}
	switch m.state {
	case garageAddCar:
		b.WriteString(m.carForm.View())
		return b.String()
	case garageEditCar:
		if m.carLoading {
			b.WriteString(" " + dimStyle.Render("loading car...") + "\n")
		}
		b.WriteString(m.carForm.View())
		return b.String()
	case garagePhotos:
		b.WriteString(m.viewPhotos())
		return truncateToHeight(b.String(), m.height)
	}

	name := userStyle(me.IsStaff).Render(me.DisplayName())
	b.WriteString(" " + name + "  " + metaStyle.Render("@"+me.Username))
	if me.Email != "" {
		b.WriteString("  " + metaStyle.Render(me.Email))
	}
	b.WriteString("\n")
	if m.state == garageBio {
		b.WriteString(" " + renderInput("bio ›", m.bio, "a line about you and your builds", true, false) + "\n")
	} else if me.Bio != "" {
		b.WriteString(" " + commentTextStyle.Render(truncStr(me.Bio, max(m.width-4, 20))) + "\n")
	} else {
		b.WriteString(" " + inputPlaceholderStyle.Render("no bio yet. press e") + "\n")
	}

	b.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("── CARS (%d) ──", len(m.cars))) + "\n")
	switch {
	case m.loading && len(m.cars) == 0:
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
	case m.err != nil:
		b.WriteString(" " + errorStyle.Render(fmt.Sprintf("error: %v", m.err)) + "\n")
	case len(m.cars) == 0:
		b.WriteString(" " + dimStyle.Render("empty garage. press a to add a car") + "\n")
	}
	for i, c := range m.cars {
		line := normalStyle.Render(c.Title())
		if c.LicensePlate != "" {
			line += "  " + metaStyle.Render(c.LicensePlate)
		}
		if c.Color != "" {
			line += "  " + dimStyle.Render(c.Color)
		}
		b.WriteString(renderRow(line, m.section == sectionCars && i == m.carCursor, m.width))
	}
	if m.state == garageDeleting && m.carCursor < len(m.cars) {
		b.WriteString(" " + errorStyle.Render("remove "+m.cars[m.carCursor].Title()+"? y/n") + "\n")
	}

	b.WriteString("\n " + sectionHeaderStyle.Render(fmt.Sprintf("── ORDERS (%d) ──", len(m.orders))) + "\n")
	if len(m.orders) == 0 {
		b.WriteString(" " + dimStyle.Render("no orders yet") + "\n")
	}
	for i, o := range m.orders {
		line := normalStyle.Render(fmt.Sprintf("#%-6d", o.ID)) + " " +
			metaStyle.Render(fmt.Sprintf("%-11s", o.Status)) + " " +
			priceStyle.Render(formatPrice(o.TotalPrice)) + "  " +
			dimStyle.Render(formatTime(o.CreatedAt))
		b.WriteString(renderRow(line, m.section == sectionOrders && i == m.orderCursor, m.width))
	}

	return truncateToHeight(b.String(), m.height)
}

func (m garageModel) viewPhotos() string {
	var b strings.Builder
	if m.photosCar == nil {
		return ""
	}
	b.WriteString(" " + sectionHeaderStyle.Render(fmt.Sprintf("── PHOTOS · %s ──", m.photosCar.Title())) + "\n")
	switch {
	case m.loading && len(m.photos) == 0:
		b.WriteString(" " + dimStyle.Render("loading...") + "\n")
		return b.String()
	case len(m.photos) == 0:
		b.WriteString(" " + dimStyle.Render("no photos yet. upload them on the site") + "\n")
		return b.String()
	}
	for i, p := range m.photos {
		line := normalStyle.Render(fmt.Sprintf("#%-6d", p.ID)) + " " + dimStyle.Render(formatDate(p.CreatedAt))
		if p.PhotoURL != nil {
			line += "  " + metaStyle.Render(truncStr(*p.PhotoURL, max(m.width-36, 12)))
		}
		if p.IsPrimary {
			line += "  " + badgeStyle.Render("cover")
		}
		b.WriteString(renderRow(line, i == m.photoCursor, m.width))
	}
	return b.String()
}

func (m garageModel) helpBar() string {
	switch m.state {
	case garageBio:
		return helpEntry("enter", "save") + "  " + helpEntry("esc", "cancel")
	case garagePhotos:
		return helpEntry("j/k", "nav") + "  " + helpEntry("s", "make cover") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("esc", "back")
	case garageAddCar, garageEditCar:
		return helpEntry("tab", "next field") + "  " + helpEntry("ctrl+s", "save") + "  " + helpEntry("esc", "cancel")
	case garageDeleting:
		return helpEntry("y", "remove") + "  " + helpEntry("n", "keep")
	}
	if m.svc.currentUser() == nil {
		return helpEntry("i", "sign in")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("e", "edit bio") + "  " + helpEntry("a", "add car") +
		"  " + helpEntry("u", "edit car") + "  " + helpEntry("p", "photos") + "  " + helpEntry("x", "remove car") + "  " + helpEntry("r", "refresh")
}
