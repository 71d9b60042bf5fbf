package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"humanityclub/site/internal/client/apiclient"
	"humanityclub/site/internal/client/guard"
)

type command struct {
	usage string
	route *guard.Route // nil for public commands
	run   func(ctx context.Context, args []string) error
}

func adminOnly(path string) *guard.Route {
	r := guard.AdminRoute(path)
	return &r
}

func (a *App) commandTable() map[string]command {
	signedIn := &guard.Route{Path: "/admin"}
	projects := adminOnly("/admin/projects")
	gallery := adminOnly("/admin/gallery")
	donation := adminOnly("/admin/donation")
	founder := adminOnly("/admin/founder")

	return map[string]command{
		"help":   {usage: "help", run: func(context.Context, []string) error { a.help(); return nil }},
		"login":  {usage: "login [email]", run: a.login},
		"logout": {usage: "logout", run: a.logout},
		"whoami": {usage: "whoami", route: signedIn, run: a.whoami},

		"projects list":  {usage: "projects list", run: a.listProjects},
		"projects add":   {usage: "projects add", route: projects, run: a.addProject},
		"projects edit":  {usage: "projects edit <id>", route: projects, run: a.editProject},
		"projects image": {usage: "projects image <id> <file>", route: projects, run: a.projectImage},
		"projects rm":    {usage: "projects rm <id>", route: projects, run: a.removeProject},

		"gallery list":   {usage: "gallery list", run: a.listAlbums},
		"gallery images": {usage: "gallery images [page]", route: gallery, run: a.listImages},
		"gallery upload": {usage: "gallery upload <albumId> <file>", route: gallery, run: a.uploadImage},
		"gallery rm":     {usage: "gallery rm <imageId>", route: gallery, run: a.removeImage},

		"donation show": {usage: "donation show", run: a.showDonation},
		"donation set":  {usage: "donation set", route: donation, run: a.setDonation},
		"donation qr":   {usage: "donation qr <file>", route: donation, run: a.uploadQR},
		"donation rmqr": {usage: "donation rmqr", route: donation, run: a.removeQR},

		"founder show":  {usage: "founder show", run: a.showFounder},
		"founder set":   {usage: "founder set", route: founder, run: a.setFounder},
		"founder image": {usage: "founder image <file>", route: founder, run: a.founderImage},

		"contact send": {usage: "contact send", run: a.sendContact},
	}
}

func (a *App) login(ctx context.Context, args []string) error {
	var fallback string
	if u, ok := a.store.User(); ok {
		fallback = u.Email
	}
	email := fallback
	if len(args) > 0 {
		email = args[0]
	} else {
		var err error
		if email, err = a.prompt("Email", fallback); err != nil {
			return err
		}
	}
	password, err := a.password("Password")
	if err != nil {
		return err
	}

	user, err := a.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.setView(guard.ReturnPath(a.currentView()))
	fmt.Fprintf(a.out, "Login successful. Signed in as %s (%s).\n", user.Email, user.Role)
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	a.api.Logout(ctx)
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	user, err := a.api.Me(ctx)
	if err != nil {
		return err
	}
	data, _, _ := a.store.Snapshot()
	fmt.Fprintf(a.out, "%s (%s), id %s\n", user.Email, user.Role, user.ID)
	fmt.Fprintf(a.out, "session expires %s\n", data.Expiry().Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) listProjects(ctx context.Context, _ []string) error {
	projects, err := a.api.Projects(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tIMAGE")
	for _, p := range projects {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Title, p.Image)
	}
	return w.Flush()
}

func (a *App) addProject(ctx context.Context, _ []string) error {
	title, err := a.prompt("Title", "")
	if err != nil {
		return err
	}
	description, err := a.prompt("Description", "")
	if err != nil {
		return err
	}
	image, err := a.prompt("Image URL (optional)", "")
	if err != nil {
		return err
	}

	project, err := a.api.CreateProject(ctx, title, description, image)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Project created: %s\n", project.ID)
	return nil
}

func (a *App) editProject(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, 0, "Project id")
	if err != nil {
		return err
	}
	title, err := a.prompt("Title", "")
	if err != nil {
		return err
	}
	description, err := a.prompt("Description", "")
	if err != nil {
		return err
	}
	if _, err := a.api.UpdateProject(ctx, id, title, description); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Project updated.")
	return nil
}

func (a *App) projectImage(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, 0, "Project id")
	if err != nil {
		return err
	}
	path, err := a.argOrPrompt(args, 1, "Image file")
	if err != nil {
		return err
	}
	file, err := readImage(path)
	if err != nil {
		return err
	}
	project, err := a.api.ReplaceProjectImage(ctx, id, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Project image updated: %s\n", project.Image)
	return nil
}

func (a *App) removeProject(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, 0, "Project id")
	if err != nil {
		return err
	}
	if err := a.api.DeleteProject(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Project deleted.")
	return nil
}

func (a *App) listAlbums(ctx context.Context, _ []string) error {
	albums, err := a.api.Albums(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tALBUM\tIMAGES")
	for _, album := range albums {
		fmt.Fprintf(w, "%s\t%s\t%d\n", album.ID, album.Title, len(album.Images))
	}
	return w.Flush()
}

func (a *App) listImages(ctx context.Context, args []string) error {
	page := 1
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("page must be a positive number")
		}
		page = n
	}

	result, err := a.api.GalleryImages(ctx, page, 20)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tALBUM\tURL")
	for _, img := range result.Images {
		fmt.Fprintf(w, "%s\t%s\t%s\n", img.ID, img.AlbumID, img.URL)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "page %d, %d images total\n", result.Page, result.Total)
	return nil
}

func (a *App) uploadImage(ctx context.Context, args []string) error {
	albumID, err := a.argOrPrompt(args, 0, "Album id")
	if err != nil {
		return err
	}
	path, err := a.argOrPrompt(args, 1, "Image file")
	if err != nil {
		return err
	}
	file, err := readImage(path)
	if err != nil {
		return err
	}
	img, err := a.api.UploadGalleryImage(ctx, albumID, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Image uploaded: %s\n", img.URL)
	return nil
}

func (a *App) removeImage(ctx context.Context, args []string) error {
	id, err := a.argOrPrompt(args, 0, "Image id")
	if err != nil {
		return err
	}
	if err := a.api.DeleteGalleryImage(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Image deleted.")
	return nil
}

func (a *App) printDonation(d apiclient.Donation) {
	qr := "-"
	if d.QRCodeImage != nil {
		qr = *d.QRCodeImage
	}
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "UPI ID\t%s\n", d.UPIID)
	fmt.Fprintf(w, "Account name\t%s\n", d.AccountName)
	fmt.Fprintf(w, "Account number\t%s\n", d.AccountNumber)
	fmt.Fprintf(w, "IFSC\t%s\n", d.IFSCCode)
	fmt.Fprintf(w, "Bank\t%s\n", d.BankName)
	fmt.Fprintf(w, "QR code\t%s\n", qr)
	_ = w.Flush()
}

func (a *App) showDonation(ctx context.Context, _ []string) error {
	d, err := a.api.Donation(ctx)
	if err != nil {
		return err
	}
	a.printDonation(d)
	return nil
}

func (a *App) setDonation(ctx context.Context, _ []string) error {
	current, err := a.api.Donation(ctx)
	if err != nil {
		return err
	}

	var next apiclient.Donation
	fields := []struct {
		label string
		old   string
		dst   *string
	}{
		{"UPI ID", current.UPIID, &next.UPIID},
		{"Account name", current.AccountName, &next.AccountName},
		{"Account number", current.AccountNumber, &next.AccountNumber},
		{"IFSC", current.IFSCCode, &next.IFSCCode},
		{"Bank", current.BankName, &next.BankName},
	}
	for _, f := range fields {
		if *f.dst, err = a.prompt(f.label, f.old); err != nil {
			return err
		}
	}

	updated, err := a.api.UpdateDonation(ctx, next)
	if err != nil {
		return err
	}
	a.printDonation(updated)
	return nil
}

func (a *App) uploadQR(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "QR image file")
	if err != nil {
		return err
	}
	file, err := readImage(path)
	if err != nil {
		return err
	}
	if _, err := a.api.UploadQR(ctx, file); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "QR code uploaded.")
	return nil
}

func (a *App) removeQR(ctx context.Context, _ []string) error {
	if _, err := a.api.RemoveQR(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "QR code removed.")
	return nil
}

func (a *App) showFounder(ctx context.Context, _ []string) error {
	f, err := a.api.Founder(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s, %s\n\n%s\n\nimage: %s\n", f.Name, f.Title, f.Message, f.Image)
	return nil
}

func (a *App) setFounder(ctx context.Context, _ []string) error {
	current, err := a.api.Founder(ctx)
	if err != nil {
		return err
	}
	message, err := a.prompt("Message", current.Message)
	if err != nil {
		return err
	}
	name, err := a.prompt("Name", current.Name)
	if err != nil {
		return err
	}
	title, err := a.prompt("Title", current.Title)
	if err != nil {
		return err
	}
	if _, err := a.api.UpdateFounder(ctx, message, name, title); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Founder message updated.")
	return nil
}

func (a *App) founderImage(ctx context.Context, args []string) error {
	path, err := a.argOrPrompt(args, 0, "Image file")
	if err != nil {
		return err
	}
	file, err := readImage(path)
	if err != nil {
		return err
	}
	if _, err := a.api.UploadFounderImage(ctx, file); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Founder image updated.")
	return nil
}

func (a *App) sendContact(ctx context.Context, _ []string) error {
	name, err := a.prompt("Name", "")
	if err != nil {
		return err
	}
	email, err := a.prompt("Email", "")
	if err != nil {
		return err
	}
	message, err := a.prompt("Message", "")
	if err != nil {
		return err
	}
	if err := a.api.SendContact(ctx, name, email, message); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Your message has been sent successfully! We will get back to you soon.")
	return nil
}

var _ API = (*apiclient.Client)(nil)
